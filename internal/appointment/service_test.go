package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-editor/internal/config"
	"github.com/hackgods/appointment-editor/internal/recurrence"
	redisclient "github.com/hackgods/appointment-editor/internal/redis"
)

type mockRepo struct {
	patients      map[uuid.UUID]bool
	services      map[uuid.UUID]bool
	saved         map[uuid.UUID]*Appointment
	searchCalls   []string
	lastScope     *uuid.UUID
	events        []EventLog
	createErr     error
	createdSolo   int
	createdSeries int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]bool),
		services: make(map[uuid.UUID]bool),
		saved:    make(map[uuid.UUID]*Appointment),
	}
}

func (m *mockRepo) search(name string) ([]Option, error) {
	m.searchCalls = append(m.searchCalls, name)
	return []Option{{ID: uuid.New(), Label: name}}, nil
}

func (m *mockRepo) SearchPatients(ctx context.Context, query string, limit int) ([]Option, error) {
	return m.search("patients")
}

func (m *mockRepo) SearchSpecialities(ctx context.Context, query string, limit int) ([]Option, error) {
	return m.search("specialities")
}

func (m *mockRepo) SearchServices(ctx context.Context, query string, specialityID *uuid.UUID, limit int) ([]Option, error) {
	m.lastScope = specialityID
	return m.search("services")
}

func (m *mockRepo) SearchServiceTypes(ctx context.Context, query string, serviceID uuid.UUID, limit int) ([]Option, error) {
	m.lastScope = &serviceID
	return m.search("service_types")
}

func (m *mockRepo) SearchLocations(ctx context.Context, query string, limit int) ([]Option, error) {
	return m.search("locations")
}

func (m *mockRepo) SearchProviders(ctx context.Context, query string, limit int) ([]Option, error) {
	return m.search("providers")
}

func (m *mockRepo) GetPatientByID(ctx context.Context, id uuid.UUID) (*Option, error) {
	if !m.patients[id] {
		return nil, ErrPatientNotFound
	}
	return &Option{ID: id}, nil
}

func (m *mockRepo) GetServiceByID(ctx context.Context, id uuid.UUID) (*Option, error) {
	if !m.services[id] {
		return nil, ErrServiceNotFound
	}
	return &Option{ID: id}, nil
}

func (m *mockRepo) GetAppointmentBySession(ctx context.Context, sessionID uuid.UUID) (*Appointment, error) {
	if a, ok := m.saved[sessionID]; ok {
		return a, nil
	}
	return nil, ErrAppointmentNotFound
}

func (m *mockRepo) CreateAppointment(ctx context.Context, p AppointmentPayload) (*Appointment, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdSolo++
	a := &Appointment{ID: uuid.New(), SessionID: p.SessionID, PatientID: p.PatientID, ServiceID: p.ServiceID}
	m.saved[p.SessionID] = a
	return a, nil
}

func (m *mockRepo) CreateSeries(ctx context.Context, p RecurringPayload) (*Series, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdSeries++
	s := &Series{ID: uuid.New(), SessionID: p.Appointment.SessionID, Pattern: p.Pattern}
	for range p.Dates {
		s.Appointments = append(s.Appointments, Appointment{ID: uuid.New(), SeriesID: &s.ID})
	}
	m.saved[p.Appointment.SessionID] = &s.Appointments[0]
	return s, nil
}

func (m *mockRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	m.events = append(m.events, ev)
	return nil
}

type mockLocker struct {
	busy  bool
	calls int
}

func (l *mockLocker) WithSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context) error) error {
	l.calls++
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

func newTestService(repo *mockRepo, locker *mockLocker) *Service {
	return NewService(repo, locker, config.EditorConfig{}, zerolog.Nop())
}

func testPayload(repo *mockRepo) AppointmentPayload {
	patient, service := uuid.New(), uuid.New()
	repo.patients[patient] = true
	repo.services[service] = true
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return AppointmentPayload{
		SessionID:     uuid.New(),
		PatientID:     patient,
		ServiceID:     service,
		StartDateTime: start,
		EndDateTime:   start.Add(30 * time.Minute),
		Status:        StatusScheduled,
	}
}

func TestSaveAppointment_Success(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockLocker{})

	res, err := svc.SaveAppointment(context.Background(), testPayload(repo))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.AppointmentIDs) != 1 || res.SeriesID != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(repo.events) != 1 || repo.events[0].EventType != EventAppointmentCreated {
		t.Fatalf("expected one created event, got %+v", repo.events)
	}
}

func TestSaveAppointment_AlreadySaved(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockLocker{})
	p := testPayload(repo)

	if _, err := svc.SaveAppointment(context.Background(), p); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := svc.SaveAppointment(context.Background(), p); !errors.Is(err, ErrDraftAlreadySaved) {
		t.Fatalf("expected ErrDraftAlreadySaved, got %v", err)
	}
	if repo.createdSolo != 1 {
		t.Fatalf("expected one insert, got %d", repo.createdSolo)
	}
}

func TestSaveAppointment_LockBusy(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockLocker{busy: true})

	if _, err := svc.SaveAppointment(context.Background(), testPayload(repo)); !errors.Is(err, ErrDraftBeingSaved) {
		t.Fatalf("expected ErrDraftBeingSaved, got %v", err)
	}
	if repo.createdSolo != 0 {
		t.Fatal("nothing should be stored without the lock")
	}
}

func TestSaveAppointment_UnknownReferences(t *testing.T) {
	repo := newMockRepo()
	locker := &mockLocker{}
	svc := newTestService(repo, locker)

	p := testPayload(repo)
	p.PatientID = uuid.New()
	if _, err := svc.SaveAppointment(context.Background(), p); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}

	p = testPayload(repo)
	p.ServiceID = uuid.New()
	if _, err := svc.SaveAppointment(context.Background(), p); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
	if locker.calls != 0 {
		t.Fatal("reference checks run before locking")
	}
}

func TestSaveAppointment_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = errors.New("connection reset")
	svc := newTestService(repo, &mockLocker{})

	_, err := svc.SaveAppointment(context.Background(), testPayload(repo))
	if !errors.Is(err, repo.createErr) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestSaveRecurring(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockLocker{})
	p := testPayload(repo)
	n := 3
	dates := []time.Time{
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	}

	res, err := svc.SaveRecurring(context.Background(), RecurringPayload{
		Appointment: p,
		Pattern:     RecurringPattern{Type: "DAY", Period: 1, Occurrences: &n},
		Dates:       dates,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SeriesID == nil || len(res.AppointmentIDs) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(repo.events) != 1 || repo.events[0].EventType != EventSeriesCreated {
		t.Fatalf("expected one series event, got %+v", repo.events)
	}
}

func TestSaveRecurring_NoDates(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockLocker{})
	_, err := svc.SaveRecurring(context.Background(), RecurringPayload{Appointment: testPayload(repo)})
	if !errors.Is(err, ErrNoOccurrences) {
		t.Fatalf("expected ErrNoOccurrences, got %v", err)
	}
}

func TestService_Search(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockLocker{})
	ctx := context.Background()

	if _, err := svc.Search(ctx, SearchServiceType, "", SearchScope{}); !errors.Is(err, ErrServiceScopeNeeded) {
		t.Fatalf("expected ErrServiceScopeNeeded, got %v", err)
	}
	if _, err := svc.Search(ctx, SearchKind("room"), "", SearchScope{}); !errors.Is(err, ErrUnknownSearchKind) {
		t.Fatalf("expected ErrUnknownSearchKind, got %v", err)
	}

	specialityID := uuid.New()
	if _, err := svc.Search(ctx, SearchService, " ecg ", SearchScope{SpecialityID: &specialityID}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if repo.lastScope == nil || *repo.lastScope != specialityID {
		t.Fatal("speciality scope should reach the repository")
	}

	for _, kind := range []SearchKind{SearchPatient, SearchSpeciality, SearchLocation, SearchProvider} {
		if _, err := svc.Search(ctx, kind, "a", SearchScope{}); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
	}
	if len(repo.searchCalls) != 5 {
		t.Fatalf("expected 5 repository searches, got %v", repo.searchCalls)
	}
}

func TestNewRecurringPayload_Weekly(t *testing.T) {
	d := Details{
		Patient:   &Option{ID: uuid.New()},
		Service:   &Option{ID: uuid.New()},
		StartTime: &TimeOfDay{Hour: 10},
		EndTime:   &TimeOfDay{Hour: 10, Minute: 30},
	}
	end := time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)
	s := recurrence.Settings{
		Enabled:   true,
		Frequency: recurrence.FrequencyWeek,
		Period:    1,
		WeekDays:  recurrence.NewWeekdaySet(time.Monday, time.Thursday),
		Start:     recurrence.StartCondition{Kind: recurrence.StartToday},
		End:       recurrence.EndCondition{Kind: recurrence.EndOn, Date: &end},
	}
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) // Tuesday

	p, err := NewRecurringPayload(uuid.New(), d, s, today, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Thu 12, Mon 16, Thu 19, Mon 23
	if len(p.Dates) != 4 {
		t.Fatalf("expected 4 dates, got %v", p.Dates)
	}
	if p.Pattern.Type != "WEEK" || p.Pattern.EndDate == nil || !p.Pattern.EndDate.Equal(end) {
		t.Fatalf("unexpected pattern %+v", p.Pattern)
	}
	if len(p.Pattern.DaysOfWeek) != 2 || p.Pattern.DaysOfWeek[0] != "MONDAY" {
		t.Fatalf("unexpected days %v", p.Pattern.DaysOfWeek)
	}
	wantStart := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	if !p.Appointment.StartDateTime.Equal(wantStart) {
		t.Fatalf("first appointment should start %s, got %s", wantStart, p.Appointment.StartDateTime)
	}
}

func TestNewAppointmentPayload_Incomplete(t *testing.T) {
	_, err := NewAppointmentPayload(uuid.New(), Details{Patient: &Option{ID: uuid.New()}}, time.Now())
	if !errors.Is(err, ErrIncompleteDetails) {
		t.Fatalf("expected ErrIncompleteDetails, got %v", err)
	}
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("23:45")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tod.AddMinutes(30).String(); got != "00:15" {
		t.Fatalf("expected wrap to 00:15, got %s", got)
	}
	if got := tod.AddMinutes(-24 * 60).String(); got != "23:45" {
		t.Fatalf("expected full day back to 23:45, got %s", got)
	}
	if _, err := ParseTimeOfDay("9am"); err == nil {
		t.Fatal("expected parse error")
	}
	if !(TimeOfDay{Hour: 9}).Before(TimeOfDay{Hour: 9, Minute: 1}) {
		t.Fatal("09:00 is before 09:01")
	}
}

func TestDetailsPatch_FieldsAndClear(t *testing.T) {
	p := DetailsPatch{Service: Set[*Option](nil), Notes: Set("x")}
	if !p.Has(FieldService) || !p.Has(FieldNotes) || p.Has(FieldPatient) {
		t.Fatalf("unexpected fields %v", p.Fields())
	}

	d := Details{Location: &Option{ID: uuid.New()}, Notes: "keep"}
	if Clear(d, FieldLocation).Location != nil {
		t.Fatal("location should be cleared")
	}
	if Clear(d, FieldLocation).Notes != "keep" {
		t.Fatal("other fields must be kept")
	}
}

func TestErrorPatch_Apply(t *testing.T) {
	e := ErrorIndicators{PatientError: true}
	e = ErrorPatch{FlagService: true, FlagPatient: false, ErrorFlag("bogus"): true}.Apply(e)
	if e.PatientError || !e.ServiceError || e.Count() != 1 {
		t.Fatalf("unexpected indicators %+v", e)
	}
}
