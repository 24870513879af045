package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-editor/internal/config"
	redisclient "github.com/hackgods/appointment-editor/internal/redis"
)

const (
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventSeriesCreated      = "RECURRING_APPOINTMENTS_CREATED"
)

var (
	ErrDraftAlreadySaved  = errors.New("editor session was already saved")
	ErrDraftBeingSaved    = errors.New("editor session is currently being saved, please retry")
	ErrUnknownSearchKind  = errors.New("unknown search kind")
	ErrServiceScopeNeeded = errors.New("service type search needs a selected service")
	ErrNoOccurrences      = errors.New("recurring appointment has no dates")
)

// Service is the save and search collaborator of the editor.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.EditorConfig
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.EditorConfig, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg.WithDefaults(),
		log:    logger.With().Str("component", "appointment_service").Logger(),
	}
}

// Search returns suggestions for one of the editor's search widgets.
func (s *Service) Search(ctx context.Context, kind SearchKind, query string, scope SearchScope) ([]Option, error) {
	query = strings.TrimSpace(query)
	limit := s.cfg.SearchLimit

	var (
		opts []Option
		err  error
	)
	switch kind {
	case SearchPatient:
		opts, err = s.repo.SearchPatients(ctx, query, limit)
	case SearchSpeciality:
		opts, err = s.repo.SearchSpecialities(ctx, query, limit)
	case SearchService:
		opts, err = s.repo.SearchServices(ctx, query, scope.SpecialityID, limit)
	case SearchServiceType:
		if scope.ServiceID == nil {
			return nil, ErrServiceScopeNeeded
		}
		opts, err = s.repo.SearchServiceTypes(ctx, query, *scope.ServiceID, limit)
	case SearchLocation:
		opts, err = s.repo.SearchLocations(ctx, query, limit)
	case SearchProvider:
		opts, err = s.repo.SearchProviders(ctx, query, limit)
	default:
		return nil, ErrUnknownSearchKind
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	return opts, nil
}

// checkReferences makes sure the selected patient and service still exist.
func (s *Service) checkReferences(ctx context.Context, p AppointmentPayload) error {
	if _, err := s.repo.GetPatientByID(ctx, p.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return err
		}
		return fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetServiceByID(ctx, p.ServiceID); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return err
		}
		return fmt.Errorf("load service: %w", err)
	}
	return nil
}

// withSubmitLock runs fn while holding the session lock, after checking that
// nothing was stored for the session yet.
func (s *Service) withSubmitLock(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context) error) error {
	err := s.locker.WithSessionLock(ctx, sessionID, func(lockCtx context.Context) error {
		// Inside the critical section re-check for an appointment saved by another replica
		existing, err := s.repo.GetAppointmentBySession(lockCtx, sessionID)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check saved session: %w", err)
		}
		if existing != nil {
			return ErrDraftAlreadySaved
		}
		return fn(lockCtx)
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrDraftBeingSaved
	}
	return err
}

// SaveAppointment stores a single appointment.
func (s *Service) SaveAppointment(ctx context.Context, p AppointmentPayload) (*SaveResult, error) {
	if err := s.checkReferences(ctx, p); err != nil {
		return nil, err
	}

	var result *SaveResult
	err := s.withSubmitLock(ctx, p.SessionID, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointment(lockCtx, p)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		result = &SaveResult{AppointmentIDs: []uuid.UUID{appt.ID}}

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"session_id": p.SessionID.String(),
			"patient_id": p.PatientID.String(),
			"service_id": p.ServiceID.String(),
			"start":      p.StartDateTime,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", p.SessionID.String()).
		Str("appointment_id", result.AppointmentIDs[0].String()).
		Msg("appointment saved")
	return result, nil
}

// SaveRecurring stores the pattern and every generated appointment.
func (s *Service) SaveRecurring(ctx context.Context, p RecurringPayload) (*SaveResult, error) {
	if len(p.Dates) == 0 {
		return nil, ErrNoOccurrences
	}
	if err := s.checkReferences(ctx, p.Appointment); err != nil {
		return nil, err
	}

	var result *SaveResult
	err := s.withSubmitLock(ctx, p.Appointment.SessionID, func(lockCtx context.Context) error {
		series, err := s.repo.CreateSeries(lockCtx, p)
		if err != nil {
			return fmt.Errorf("create appointment series: %w", err)
		}

		seriesID := series.ID
		result = &SaveResult{SeriesID: &seriesID}
		for _, a := range series.Appointments {
			result.AppointmentIDs = append(result.AppointmentIDs, a.ID)
		}

		if len(series.Appointments) > 0 {
			s.logEvent(lockCtx, series.Appointments[0].ID, EventSeriesCreated, map[string]any{
				"session_id":  p.Appointment.SessionID.String(),
				"series_id":   seriesID.String(),
				"pattern":     p.Pattern,
				"occurrences": len(series.Appointments),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", p.Appointment.SessionID.String()).
		Str("series_id", result.SeriesID.String()).
		Int("occurrences", len(result.AppointmentIDs)).
		Msg("recurring appointments saved")
	return result, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}
