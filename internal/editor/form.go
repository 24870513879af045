// Package editor holds the state of one appointment editor and the
// check-and-save flow around it.
package editor

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/config"
	"github.com/hackgods/appointment-editor/internal/recurrence"
	"github.com/hackgods/appointment-editor/internal/validation"
)

var (
	ErrSubmitted        = errors.New("appointment was already saved")
	ErrSaveInProgress   = errors.New("appointment is being saved")
	ErrSessionNotFound  = errors.New("editor session not found")
	ErrStaleSearch      = errors.New("search response is stale")
	ErrSearchDisabled   = errors.New("search is disabled by configuration")
	ErrNoSearcher       = errors.New("no search collaborator configured")
	ErrNoSaver          = errors.New("no save collaborator configured")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)

// Form is the state of one appointment editor. It is safe for concurrent use.
type Form struct {
	id       uuid.UUID
	cfg      config.EditorConfig
	searcher Searcher
	saver    Saver
	clock    Clock
	log      zerolog.Logger
	onChange func(appointment.Snapshot)

	mu        sync.Mutex
	details   appointment.Details
	rec       recurrence.Settings
	errors    appointment.ErrorIndicators
	state     recurrence.State
	submitted bool
	saving    bool

	providerTimer Timer
	providerGen   uint64

	searchSeq map[appointment.SearchKind]uint64
}

type FormOption func(*Form)

func WithClock(c Clock) FormOption {
	return func(f *Form) { f.clock = c }
}

func WithLogger(l zerolog.Logger) FormOption {
	return func(f *Form) { f.log = l }
}

// WithOnChange registers a hook called with the new state after every
// mutation, outside the form lock.
func WithOnChange(fn func(appointment.Snapshot)) FormOption {
	return func(f *Form) { f.onChange = fn }
}

func NewForm(id uuid.UUID, cfg config.EditorConfig, searcher Searcher, saver Saver, opts ...FormOption) *Form {
	f := &Form{
		id:        id,
		cfg:       cfg.WithDefaults(),
		searcher:  searcher,
		saver:     saver,
		clock:     realClock{},
		log:       zerolog.Nop(),
		rec:       recurrence.DefaultSettings(),
		state:     recurrence.StateNone,
		searchSeq: make(map[appointment.SearchKind]uint64),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With().Str("session_id", id.String()).Logger()
	return f
}

func (f *Form) ID() uuid.UUID { return f.id }

func (f *Form) Config() config.EditorConfig { return f.cfg }

func (f *Form) Snapshot() appointment.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() appointment.Snapshot {
	return appointment.Snapshot{
		SessionID:  f.id,
		Details:    f.details.Clone(),
		Recurrence: f.rec,
		Errors:     f.errors,
		State:      f.state,
		Submitted:  f.submitted,
	}
}

// mutate runs fn under the lock and notifies the change hook afterwards.
func (f *Form) mutate(fn func() error) error {
	f.mu.Lock()
	if err := f.writableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := fn(); err != nil {
		f.mu.Unlock()
		return err
	}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(snap)
	return nil
}

func (f *Form) notify(snap appointment.Snapshot) {
	if f.onChange != nil {
		f.onChange(snap)
	}
}

func (f *Form) writableLocked() error {
	if f.submitted {
		return ErrSubmitted
	}
	if f.saving {
		return ErrSaveInProgress
	}
	return nil
}

func (f *Form) today() time.Time {
	return recurrence.DateOf(f.clock.Now())
}

func (f *Form) validationOptions() validation.Options {
	return validation.Options{Today: f.today(), DefaultOccurrences: f.cfg.DefaultOccurrences, MaxOccurrences: f.cfg.MaxOccurrences}
}

// relaxLocked clears error flags the current state no longer raises.
func (f *Form) relaxLocked() {
	if !f.errors.Any() {
		return
	}
	computed := validation.Validate(f.details, f.rec, appointment.ModeOf(f.rec), f.validationOptions())
	f.errors = validation.Relax(f.errors, computed)
}

// applyDetailsLocked merges p, clears cascaded dependents and records the edit.
func (f *Form) applyDetailsLocked(p appointment.DetailsPatch) {
	d := p.Apply(f.details)
	for _, dep := range cascade(p.Fields()) {
		d = appointment.Clear(d, dep)
	}
	f.details = d
	f.state = f.state.Next(recurrence.EventEdit)
	f.relaxLocked()
}

// UpdateAppointmentDetails shallow merges p into the details. No validation
// pass runs beyond clearing errors that the edit fixed.
func (f *Form) UpdateAppointmentDetails(p appointment.DetailsPatch) error {
	return f.mutate(func() error {
		f.applyDetailsLocked(p)
		return nil
	})
}

// UpdateErrorIndicators merges p into the error flags. Clearing the provider
// error by hand cancels its pending timeout.
func (f *Form) UpdateErrorIndicators(p appointment.ErrorPatch) error {
	return f.mutate(func() error {
		f.errors = p.Apply(f.errors)
		if v, ok := p[appointment.FlagProvider]; ok && !v {
			f.cancelProviderTimerLocked()
		}
		return nil
	})
}

// SelectPatient sets the patient. Clearing a selected patient raises the
// patient error straight away.
func (f *Form) SelectPatient(o *appointment.Option) error {
	return f.mutate(func() error {
		hadPatient := f.details.Patient != nil
		f.applyDetailsLocked(appointment.DetailsPatch{Patient: appointment.Set(o)})
		if o == nil && hadPatient {
			f.errors.PatientError = true
		}
		return nil
	})
}

// SelectSpeciality sets the speciality and resets service, service type and
// location.
func (f *Form) SelectSpeciality(o *appointment.Option) error {
	return f.mutate(func() error {
		f.applyDetailsLocked(appointment.DetailsPatch{Speciality: appointment.Set(o)})
		return nil
	})
}

// SelectService sets the service, clears the service type and takes the
// location from the service. It also moves the end time to match the
// service duration.
func (f *Form) SelectService(o *appointment.Option) error {
	return f.mutate(func() error {
		hadService := f.details.Service != nil
		f.applyDetailsLocked(appointment.DetailsPatch{Service: appointment.Set(o)})
		if o == nil && hadService {
			f.errors.ServiceError = true
		}
		var loc *appointment.Option
		if o != nil && o.Location != nil {
			l := *o.Location
			loc = &l
		}
		f.details.Location = loc
		if o == nil {
			return nil
		}
		f.endTimeBasedOnServiceLocked(f.details.StartTime, o, nil)
		return nil
	})
}

func (f *Form) SelectServiceType(o *appointment.Option) error {
	return f.mutate(func() error {
		f.applyDetailsLocked(appointment.DetailsPatch{ServiceType: appointment.Set(o)})
		if o != nil {
			f.endTimeBasedOnServiceLocked(f.details.StartTime, f.details.Service, o)
		}
		return nil
	})
}

func (f *Form) SelectLocation(o *appointment.Option) error {
	return f.UpdateAppointmentDetails(appointment.DetailsPatch{Location: appointment.Set(o)})
}

// SelectStartTime sets the start time and derives the end time from the
// selected service.
func (f *Form) SelectStartTime(t *appointment.TimeOfDay) error {
	if t != nil && (t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59) {
		return ErrInvalidTimeOfDay
	}
	return f.mutate(func() error {
		f.applyDetailsLocked(appointment.DetailsPatch{StartTime: appointment.Set(t)})
		f.endTimeBasedOnServiceLocked(t, f.details.Service, f.details.ServiceType)
		return nil
	})
}

// lastMinute is the latest end time the editor computes; appointments do not
// run past midnight.
var lastMinute = appointment.TimeOfDay{Hour: 23, Minute: 59}

// EndTimeBasedOnService returns start plus the duration of the service type,
// else of the service, else the configured default duration. The result is
// clamped to 23:59.
func EndTimeBasedOnService(start appointment.TimeOfDay, service, serviceType *appointment.Option, def time.Duration) appointment.TimeOfDay {
	mins := int(def / time.Minute)
	switch {
	case serviceType != nil && serviceType.DurationMins > 0:
		mins = serviceType.DurationMins
	case service != nil && service.DurationMins > 0:
		mins = service.DurationMins
	}
	if start.Minutes()+mins > lastMinute.Minutes() {
		return lastMinute
	}
	return start.AddMinutes(mins)
}

func (f *Form) endTimeBasedOnServiceLocked(start *appointment.TimeOfDay, service, serviceType *appointment.Option) {
	if start == nil {
		return
	}
	end := EndTimeBasedOnService(*start, service, serviceType, f.cfg.DefaultDuration)
	f.details.EndTime = &end
	f.relaxLocked()
}

// Close stops the pending provider error timer. The form stays readable.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelProviderTimerLocked()
}
