package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, session_id, series_id, patient_id, service_id, service_type_id,
	location_id, start_date_time, end_date_time, comments, status, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var comments *string

	err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.SeriesID,
		&a.PatientID,
		&a.ServiceID,
		&a.ServiceTypeID,
		&a.LocationID,
		&a.StartDateTime,
		&a.EndDateTime,
		&comments,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if comments != nil {
		a.Comments = *comments
	}
	return &a, nil
}

// scanOptions reads rows of (id, label) and optionally a duration.
func scanOptions(rows pgx.Rows, withDuration bool) ([]Option, error) {
	defer rows.Close()

	var result []Option
	for rows.Next() {
		var o Option
		var err error
		if withDuration {
			err = rows.Scan(&o.ID, &o.Label, &o.DurationMins)
		} else {
			err = rows.Scan(&o.ID, &o.Label)
		}
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) queryOptions(ctx context.Context, withDuration bool, sql string, args ...any) ([]Option, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanOptions(rows, withDuration)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// likePattern escapes the ILIKE wildcards of user input so that it matches
// literally. Queries pair it with ESCAPE '\'.
func likePattern(q string) string {
	return likeEscaper.Replace(q)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Interface methods

func (r *PgRepository) SearchPatients(ctx context.Context, query string, limit int) ([]Option, error) {
	return r.queryOptions(ctx, false, `
		SELECT id, name || ' (' || identifier || ')'
		FROM patients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\' OR identifier ILIKE $1 || '%' ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`, likePattern(query), limit)
}

func (r *PgRepository) SearchSpecialities(ctx context.Context, query string, limit int) ([]Option, error) {
	return r.queryOptions(ctx, false, `
		SELECT id, name
		FROM specialities
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`, likePattern(query), limit)
}

func (r *PgRepository) SearchServices(ctx context.Context, query string, specialityID *uuid.UUID, limit int) ([]Option, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.name, COALESCE(s.duration_mins, 0), l.id, l.name
		FROM services s
		LEFT JOIN locations l ON l.id = s.location_id
		WHERE ($1 = '' OR s.name ILIKE '%' || $1 || '%' ESCAPE '\')
		  AND ($2::uuid IS NULL OR s.speciality_id = $2)
		ORDER BY s.name
		LIMIT $3
	`, likePattern(query), specialityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Option
	for rows.Next() {
		var o Option
		var locID *uuid.UUID
		var locName *string
		if err := rows.Scan(&o.ID, &o.Label, &o.DurationMins, &locID, &locName); err != nil {
			return nil, err
		}
		if locID != nil {
			o.Location = &Option{ID: *locID}
			if locName != nil {
				o.Location.Label = *locName
			}
		}
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) SearchServiceTypes(ctx context.Context, query string, serviceID uuid.UUID, limit int) ([]Option, error) {
	return r.queryOptions(ctx, true, `
		SELECT id, name, duration_mins
		FROM service_types
		WHERE service_id = $2
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\')
		ORDER BY name
		LIMIT $3
	`, likePattern(query), serviceID, limit)
}

func (r *PgRepository) SearchLocations(ctx context.Context, query string, limit int) ([]Option, error) {
	return r.queryOptions(ctx, false, `
		SELECT id, name
		FROM locations
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`, likePattern(query), limit)
}

func (r *PgRepository) SearchProviders(ctx context.Context, query string, limit int) ([]Option, error) {
	return r.queryOptions(ctx, false, `
		SELECT id, name
		FROM providers
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`, likePattern(query), limit)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Option, error) {
	var o Option
	err := r.pool.QueryRow(ctx, `
		SELECT id, name
		FROM patients
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Label)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*Option, error) {
	var o Option
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(duration_mins, 0)
		FROM services
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Label, &o.DurationMins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) GetAppointmentBySession(ctx context.Context, sessionID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE session_id = $1
		ORDER BY start_date_time
		LIMIT 1
	`, sessionID)
	return scanAppointment(row)
}

func insertAppointment(ctx context.Context, tx pgx.Tx, p AppointmentPayload, seriesID *uuid.UUID) (*Appointment, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, session_id, series_id, patient_id, service_id, service_type_id,
			location_id, start_date_time, end_date_time, comments, status, appointment_kind,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING `+appointmentColumns,
		uuid.New(), p.SessionID, seriesID, p.PatientID, p.ServiceID, p.ServiceTypeID,
		p.LocationID, p.StartDateTime, p.EndDateTime, nullableString(p.Comments), p.Status, p.AppointmentKind,
	)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if len(p.Providers) > 0 {
		rows := make([][]any, 0, len(p.Providers))
		for _, pr := range p.Providers {
			rows = append(rows, []any{appt.ID, pr.ProviderID, nullableString(string(pr.Response))})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"appointment_providers"},
			[]string{"appointment_id", "provider_id", "response"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return nil, fmt.Errorf("insert appointment providers: %w", err)
		}
	}

	return appt, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, p AppointmentPayload) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	appt, err := insertAppointment(ctx, tx, p, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return appt, nil
}

// CreateSeries stores the pattern and one appointment per generated date,
// all in one transaction.
func (r *PgRepository) CreateSeries(ctx context.Context, p RecurringPayload) (*Series, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	s := Series{ID: uuid.New(), SessionID: p.Appointment.SessionID, Pattern: p.Pattern}
	err = tx.QueryRow(ctx, `
		INSERT INTO appointment_series (id, session_id, pattern_type, period, occurrences, end_date,
			days_of_week, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at
	`, s.ID, s.SessionID, p.Pattern.Type, p.Pattern.Period, p.Pattern.Occurrences, p.Pattern.EndDate,
		p.Pattern.DaysOfWeek).Scan(&s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert appointment series: %w", err)
	}

	first := p.Appointment
	length := first.EndDateTime.Sub(first.StartDateTime)
	for _, d := range p.Dates {
		ap := first
		y, m, day := d.Date()
		ap.StartDateTime = time.Date(y, m, day, first.StartDateTime.Hour(), first.StartDateTime.Minute(), 0, 0, first.StartDateTime.Location())
		ap.EndDateTime = ap.StartDateTime.Add(length)

		appt, err := insertAppointment(ctx, tx, ap, &s.ID)
		if err != nil {
			return nil, err
		}
		s.Appointments = append(s.Appointments, *appt)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
