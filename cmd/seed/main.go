package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/appointment-editor/internal/config"
	"github.com/hackgods/appointment-editor/internal/db"
	"github.com/hackgods/appointment-editor/internal/logging"
)

type seedOptions struct {
	patients  int
	providers int
	seed      uint64
	migrate   bool
}

var specialities = map[string][]string{
	"Cardiology":       {"ECG", "Echocardiogram", "Stress Test"},
	"Dermatology":      {"Skin Check", "Mole Removal"},
	"General Practice": {"Consultation", "Vaccination", "Health Check"},
	"Orthopedics":      {"Fracture Clinic", "Physiotherapy"},
	"Neurology":        {"EEG", "Nerve Conduction Study"},
	"Pediatrics":       {"Well Child Visit", "Immunisation"},
	"Ophthalmology":    {"Eye Exam", "Retinal Imaging"},
}

var serviceTypes = []string{"New Patient", "Follow-up", "Review"}

func main() {
	opts := seedOptions{}
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the editor tables with fake reference data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	rootCmd.Flags().IntVar(&opts.patients, "patients", 2000, "number of patients")
	rootCmd.Flags().IntVar(&opts.providers, "providers", 60, "number of providers")
	rootCmd.Flags().Uint64Var(&opts.seed, "seed", 0, "faker seed, 0 picks a random one")
	rootCmd.Flags().BoolVar(&opts.migrate, "migrate", true, "apply the schema first")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if opts.migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	faker := gofakeit.New(opts.seed)

	if err := seedCatalogue(ctx, pool, faker, logger); err != nil {
		return fmt.Errorf("seed catalogue: %w", err)
	}
	if err := seedProviders(ctx, pool, faker, opts.providers, logger); err != nil {
		return fmt.Errorf("seed providers: %w", err)
	}
	if err := seedPatients(ctx, pool, faker, opts.patients, logger); err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}

	logger.Info().Msg("seed complete")
	return nil
}

// seedCatalogue writes locations, specialities, their services and the
// service types of every service in one transaction.
func seedCatalogue(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, logger zerolog.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locations []uuid.UUID
	for i := 0; i < 6; i++ {
		var id uuid.UUID
		name := fmt.Sprintf("%s Wing, Floor %d", faker.LastName(), i+1)
		if err := tx.QueryRow(ctx, `
			INSERT INTO locations (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New(), name).Scan(&id); err != nil {
			return err
		}
		locations = append(locations, id)
	}

	services := 0
	for speciality, names := range specialities {
		var specID uuid.UUID
		var inserted bool
		if err := tx.QueryRow(ctx, `
			INSERT INTO specialities (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, (xmax = 0)
		`, uuid.New(), speciality).Scan(&specID, &inserted); err != nil {
			return err
		}
		// Services of a speciality from an earlier run are left alone.
		if !inserted {
			continue
		}

		for _, name := range names {
			svcID := uuid.New()
			// Some services have no fixed location.
			var loc *uuid.UUID
			if faker.Bool() {
				l := locations[faker.Number(0, len(locations)-1)]
				loc = &l
			}
			duration := []int{15, 20, 30, 45, 60}[faker.Number(0, 4)]

			if _, err := tx.Exec(ctx, `
				INSERT INTO services (id, name, speciality_id, location_id, duration_mins)
				VALUES ($1, $2, $3, $4, $5)
			`, svcID, name, specID, loc, duration); err != nil {
				return err
			}
			services++

			for i, st := range serviceTypes {
				// New patient visits run one slot longer.
				mins := duration
				if i == 0 {
					mins += 15
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO service_types (id, service_id, name, duration_mins)
					VALUES ($1, $2, $3, $4)
				`, uuid.New(), svcID, st, mins); err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logger.Info().Int("specialities", len(specialities)).Int("services", services).Msg("catalogue seeded")
	return nil
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, logger zerolog.Logger) error {
	rows := make([][]any, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, []any{uuid.New(), "Dr. " + faker.Name()})
	}
	n, err := pool.CopyFrom(ctx, pgx.Identifier{"providers"}, []string{"id", "name"}, pgx.CopyFromRows(rows))
	if err != nil {
		return err
	}
	logger.Info().Int64("providers", n).Msg("providers seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, logger zerolog.Logger) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			identifier := fmt.Sprintf("GAN%06d", faker.Number(0, 999999))
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, identifier)
				VALUES ($1, $2, $3)
				ON CONFLICT (identifier) DO NOTHING
			`, uuid.New(), faker.Name(), identifier)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Debug().Int("done", end).Int("total", count).Msg("patients batch seeded")
	}

	logger.Info().Int("patients", count).Msg("patients seeded")
	return nil
}
