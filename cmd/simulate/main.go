package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-editor/internal/config"
	"github.com/hackgods/appointment-editor/internal/db"
	"github.com/hackgods/appointment-editor/internal/logging"
)

type SimConfig struct {
	APIBaseURL        string
	Duration          time.Duration
	Workers           int
	SaveRatio         float64
	DoubleSubmitRatio float64
	RecurringRatio    float64
	SearchRatio       float64
	InvalidRatio      float64
	PatientLimit      int
	ServiceLimit      int
	PostgresDSN       string
}

type option struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	DurationMins int       `json:"duration_mins,omitempty"`
	Location     *option   `json:"location,omitempty"`
}

type DataPool struct {
	Patients []option
	Services []option
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Save         OperationMetrics
	DoubleSubmit OperationMetrics
	Recurring    OperationMetrics
	Search       OperationMetrics
	Invalid      OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	log     zerolog.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(baseCfg.Env, baseCfg.LogLevel)

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid simulator config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("save", cfg.SaveRatio).
		Float64("double_submit", cfg.DoubleSubmitRatio).
		Float64("recurring", cfg.RecurringRatio).
		Float64("search", cfg.SearchRatio).
		Float64("invalid", cfg.InvalidRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("patients", len(dataPool.Patients)).Int("services", len(dataPool.Services)).Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:        getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:          getDuration("SIM_DURATION", 30*time.Second),
		Workers:           getInt("SIM_WORKERS", 10),
		SaveRatio:         getFloat("SIM_SAVE_RATIO", 0.35),
		DoubleSubmitRatio: getFloat("SIM_DOUBLE_SUBMIT_RATIO", 0.15),
		RecurringRatio:    getFloat("SIM_RECURRING_RATIO", 0.1),
		SearchRatio:       getFloat("SIM_SEARCH_RATIO", 0.3),
		InvalidRatio:      getFloat("SIM_INVALID_RATIO", 0.1),
		PatientLimit:      getInt("SIM_PATIENT_LIMIT", 4000),
		ServiceLimit:      getInt("SIM_SERVICE_LIMIT", 200),
		PostgresDSN:       base.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.SaveRatio + cfg.DoubleSubmitRatio + cfg.RecurringRatio + cfg.SearchRatio + cfg.InvalidRatio
	if total > 0 {
		cfg.SaveRatio /= total
		cfg.DoubleSubmitRatio /= total
		cfg.RecurringRatio /= total
		cfg.SearchRatio /= total
		cfg.InvalidRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id, name || ' (' || identifier || ')' FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for rows.Next() {
		var o option
		if err := rows.Scan(&o.ID, &o.Label); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	rows, err = pool.Query(ctx, `
		SELECT s.id, s.name, COALESCE(s.duration_mins, 0), l.id, l.name
		FROM services s
		LEFT JOIN locations l ON l.id = s.location_id
		LIMIT $1
	`, cfg.ServiceLimit)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	for rows.Next() {
		var (
			o       option
			locID   *uuid.UUID
			locName *string
		)
		if err := rows.Scan(&o.ID, &o.Label, &o.DurationMins, &locID, &locName); err != nil {
			rows.Close()
			return nil, err
		}
		if locID != nil && locName != nil {
			o.Location = &option{ID: *locID, Label: *locName}
		}
		dataPool.Services = append(dataPool.Services, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dataPool.Services) == 0 {
		return nil, fmt.Errorf("no services loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c := s.config
		r := rng.Float64()
		switch {
		case r < c.SaveRatio:
			s.doSave(ctx, rng)
		case r < c.SaveRatio+c.DoubleSubmitRatio:
			s.doDoubleSubmit(ctx, rng)
		case r < c.SaveRatio+c.DoubleSubmitRatio+c.RecurringRatio:
			s.doRecurring(ctx, rng)
		case r < c.SaveRatio+c.DoubleSubmitRatio+c.RecurringRatio+c.SearchRatio:
			s.doSearch(ctx, rng)
		default:
			s.doInvalid(ctx)
		}
	}
}

// send issues one JSON request and returns the status code, 0 on transport failure.
func (s *Simulator) send(ctx context.Context, method, path string, body any, out any) int {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func (s *Simulator) openSession(ctx context.Context) (string, bool) {
	var snap struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if s.send(ctx, http.MethodPost, "/editor/sessions", nil, &snap) != http.StatusCreated {
		return "", false
	}
	return "/editor/sessions/" + snap.SessionID.String(), true
}

func (s *Simulator) closeSession(path string) {
	// The run context may be done by now; sessions are still discarded.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.send(ctx, http.MethodDelete, path, nil, nil)
}

// fillForm completes a single appointment through the select endpoints so
// the server applies its cascades.
func (s *Simulator) fillForm(ctx context.Context, rng *rand.Rand, path string) bool {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	service := s.pool.Services[rng.Intn(len(s.pool.Services))]

	if s.send(ctx, http.MethodPut, path+"/fields/patient", map[string]any{"value": patient}, nil) != http.StatusOK {
		return false
	}
	if s.send(ctx, http.MethodPut, path+"/fields/service", map[string]any{"value": service}, nil) != http.StatusOK {
		return false
	}

	date := time.Now().AddDate(0, 0, 1+rng.Intn(60)).Format("2006-01-02")
	hour := 8 + rng.Intn(9)
	minute := []int{0, 15, 30, 45}[rng.Intn(4)]
	start := fmt.Sprintf("%02d:%02d", hour, minute)

	if s.send(ctx, http.MethodPatch, path+"/details", map[string]any{"date": date}, nil) != http.StatusOK {
		return false
	}
	if s.send(ctx, http.MethodPut, path+"/fields/start_time", map[string]any{"value": start}, nil) != http.StatusOK {
		return false
	}

	// Services without a duration leave the end time to the user.
	if service.DurationMins == 0 {
		end := fmt.Sprintf("%02d:%02d", hour+1, minute)
		if s.send(ctx, http.MethodPatch, path+"/details", map[string]any{"end_time": end}, nil) != http.StatusOK {
			return false
		}
	}
	return true
}

func (s *Simulator) doSave(ctx context.Context, rng *rand.Rand) {
	path, ok := s.openSession(ctx)
	if !ok {
		s.metrics.Save.Record(0, false, false)
		return
	}
	defer s.closeSession(path)

	if !s.fillForm(ctx, rng, path) {
		s.metrics.Save.Record(0, false, false)
		return
	}

	start := time.Now()
	code := s.send(ctx, http.MethodPost, path+"/save", nil, nil)
	s.metrics.Save.Record(time.Since(start), code == http.StatusCreated, code == http.StatusConflict)
}

// doDoubleSubmit fires two saves of the same form at once. Exactly one must
// persist; the other is expected to see a conflict.
func (s *Simulator) doDoubleSubmit(ctx context.Context, rng *rand.Rand) {
	path, ok := s.openSession(ctx)
	if !ok {
		s.metrics.DoubleSubmit.Record(0, false, false)
		return
	}
	defer s.closeSession(path)

	if !s.fillForm(ctx, rng, path) {
		s.metrics.DoubleSubmit.Record(0, false, false)
		return
	}

	start := time.Now()
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.send(ctx, http.MethodPost, path+"/save", nil, nil)
		}(i)
	}
	wg.Wait()
	latency := time.Since(start)

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	if created > 1 {
		s.log.Error().Str("session", path).Msg("double submit persisted twice")
	}
	s.metrics.DoubleSubmit.Record(latency, created == 1 && conflicts == 1, created == 0 && conflicts > 0)
}

func (s *Simulator) doRecurring(ctx context.Context, rng *rand.Rand) {
	path, ok := s.openSession(ctx)
	if !ok {
		s.metrics.Recurring.Record(0, false, false)
		return
	}
	defer s.closeSession(path)

	if !s.fillForm(ctx, rng, path) {
		s.metrics.Recurring.Record(0, false, false)
		return
	}

	patch := map[string]any{
		"enabled":   true,
		"frequency": "day",
		"period":    1 + rng.Intn(3),
		"start":     map[string]any{"kind": "today"},
		"end":       map[string]any{"kind": "after", "occurrences": 2 + rng.Intn(5)},
	}
	days := []string{"mon", "tue", "wed", "thu", "fri"}
	if rng.Intn(2) == 0 {
		patch["frequency"] = "week"
		patch["week_days"] = []string{days[rng.Intn(len(days))]}
	}
	if s.send(ctx, http.MethodPatch, path+"/recurrence", patch, nil) != http.StatusOK {
		s.metrics.Recurring.Record(0, false, false)
		return
	}

	start := time.Now()
	code := s.send(ctx, http.MethodPost, path+"/save", nil, nil)
	s.metrics.Recurring.Record(time.Since(start), code == http.StatusCreated, code == http.StatusConflict)
}

func (s *Simulator) doSearch(ctx context.Context, rng *rand.Rand) {
	path, ok := s.openSession(ctx)
	if !ok {
		s.metrics.Search.Record(0, false, false)
		return
	}
	defer s.closeSession(path)

	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	query := []rune(patient.Label)
	if n := 3 + rng.Intn(3); len(query) > n {
		query = query[:n]
	}

	start := time.Now()
	code := s.send(ctx, http.MethodGet, path+"/search/patient?q="+url.QueryEscape(string(query)), nil, nil)
	s.metrics.Search.Record(time.Since(start), code == http.StatusOK, code == http.StatusConflict)
}

// doInvalid saves an empty form, which must come back as a validation failure.
func (s *Simulator) doInvalid(ctx context.Context) {
	path, ok := s.openSession(ctx)
	if !ok {
		s.metrics.Invalid.Record(0, false, false)
		return
	}
	defer s.closeSession(path)

	start := time.Now()
	code := s.send(ctx, http.MethodPost, path+"/save", nil, nil)
	s.metrics.Invalid.Record(time.Since(start), code == http.StatusUnprocessableEntity, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Save", &s.metrics.Save)
	printOperationReport("Double submit", &s.metrics.DoubleSubmit)
	printOperationReport("Recurring save", &s.metrics.Recurring)
	printOperationReport("Patient search", &s.metrics.Search)
	printOperationReport("Invalid save", &s.metrics.Invalid)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
