package editor

import (
	"context"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/recurrence"
	"github.com/hackgods/appointment-editor/internal/validation"
)

// Saver stores finished appointments.
type Saver interface {
	SaveAppointment(ctx context.Context, p appointment.AppointmentPayload) (*appointment.SaveResult, error)
	SaveRecurring(ctx context.Context, p appointment.RecurringPayload) (*appointment.SaveResult, error)
}

// SaveOutcome reports a check-and-save. Saved is false when validation
// blocked the save; Errors then holds the raised flags.
type SaveOutcome struct {
	Saved  bool
	Mode   appointment.Mode
	Errors appointment.ErrorIndicators
	Result *appointment.SaveResult
}

// CheckAndSave validates the form and, when nothing blocks it, hands the
// payload to the saver. Saver errors are returned unchanged and do not touch
// the error flags.
func (f *Form) CheckAndSave(ctx context.Context) (SaveOutcome, error) {
	if f.saver == nil {
		return SaveOutcome{}, ErrNoSaver
	}

	f.mu.Lock()
	if err := f.writableLocked(); err != nil {
		f.mu.Unlock()
		return SaveOutcome{}, err
	}

	mode := appointment.ModeOf(f.rec)
	vopts := f.validationOptions()
	computed := validation.Validate(f.details, f.rec, mode, vopts)
	f.errors = validation.Merge(f.errors, computed)

	if !validation.Ready(computed) {
		out := SaveOutcome{Mode: mode, Errors: f.errors}
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.notify(snap)
		f.log.Debug().Interface("errors", computed.Active()).Msg("save blocked by validation")
		return out, nil
	}

	var (
		single    appointment.AppointmentPayload
		recurring appointment.RecurringPayload
		err       error
	)
	if mode == appointment.ModeRecurring {
		recurring, err = appointment.NewRecurringPayload(f.id, f.details, f.rec, vopts.Today, f.cfg.DefaultOccurrences, f.cfg.MaxOccurrences)
	} else {
		single, err = appointment.NewAppointmentPayload(f.id, f.details, *f.details.Date)
	}
	if err != nil {
		f.mu.Unlock()
		return SaveOutcome{Mode: mode, Errors: f.errors}, err
	}
	if mode == appointment.ModeRecurring {
		f.state = f.state.Next(recurrence.EventValidated)
	}
	f.saving = true
	f.mu.Unlock()

	var result *appointment.SaveResult
	if mode == appointment.ModeRecurring {
		result, err = f.saver.SaveRecurring(ctx, recurring)
	} else {
		result, err = f.saver.SaveAppointment(ctx, single)
	}

	f.mu.Lock()
	f.saving = false
	if err != nil {
		out := SaveOutcome{Mode: mode, Errors: f.errors}
		f.mu.Unlock()
		f.log.Warn().Err(err).Str("mode", string(mode)).Msg("save failed")
		return out, err
	}
	f.submitted = true
	f.state = f.state.Next(recurrence.EventSaved)
	f.cancelProviderTimerLocked()
	out := SaveOutcome{Saved: true, Mode: mode, Errors: f.errors, Result: result}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(snap)
	f.log.Info().Str("mode", string(mode)).Msg("appointment submitted")
	return out, nil
}
