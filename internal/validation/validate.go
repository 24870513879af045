// Package validation computes the inline error flags of the appointment
// editor. It is a pure function of its inputs.
package validation

import (
	"errors"
	"time"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/recurrence"
)

// Options carries the inputs that would otherwise come from the clock or
// configuration.
type Options struct {
	Today              time.Time
	DefaultOccurrences int
	// MaxOccurrences caps the dates a rule may produce. Zero means
	// recurrence.DefaultExpandLimit.
	MaxOccurrences int
}

// OwnedFlags are repopulated by every Validate call. ProviderError belongs
// to the provider limit check and is left alone.
var OwnedFlags = []appointment.ErrorFlag{
	appointment.FlagPatient,
	appointment.FlagService,
	appointment.FlagDate,
	appointment.FlagStartTime,
	appointment.FlagEndTime,
	appointment.FlagTimeRange,
	appointment.FlagStartDate,
	appointment.FlagEndType,
	appointment.FlagEndDate,
	appointment.FlagOccurrences,
	appointment.FlagPeriod,
	appointment.FlagWeekDays,
	appointment.FlagRecurrencePeriod,
}

// Validate returns the error flags for d in the given mode. Flags that do not
// apply to the mode are false.
func Validate(d appointment.Details, s recurrence.Settings, mode appointment.Mode, opts Options) appointment.ErrorIndicators {
	var e appointment.ErrorIndicators

	e.PatientError = d.Patient == nil
	e.ServiceError = d.Service == nil
	e.StartTimeError = d.StartTime == nil
	e.EndTimeError = d.EndTime == nil
	if d.StartTime != nil && d.EndTime != nil {
		e.TimeRangeError = !d.StartTime.Before(*d.EndTime)
	}

	if mode != appointment.ModeRecurring {
		e.DateError = d.Date == nil
		return e
	}

	c := recurrence.Inspect(s, opts.Today, opts.DefaultOccurrences, opts.MaxOccurrences)
	e.StartDateError = c.Start != nil
	e.EndTypeError = errors.Is(c.End, recurrence.ErrEndUnset)
	e.EndDateError = errors.Is(c.End, recurrence.ErrEndDateMissing) ||
		errors.Is(c.End, recurrence.ErrEndBeforeStart) ||
		errors.Is(c.End, recurrence.ErrEndDateTooFar) ||
		errors.Is(c.End, recurrence.ErrNoOccurrences)
	e.OccurrencesError = errors.Is(c.End, recurrence.ErrInvalidOccurrences) ||
		errors.Is(c.End, recurrence.ErrTooManyOccurrences)
	e.PeriodError = c.Period != nil
	e.WeekDaysError = c.WeekDays != nil
	e.RecurrencePeriodError = e.StartDateError || e.EndTypeError || e.EndDateError ||
		e.OccurrencesError || e.PeriodError

	return e
}

// Ready reports whether nothing blocks the save.
func Ready(e appointment.ErrorIndicators) bool {
	for _, f := range OwnedFlags {
		if e.Get(f) {
			return false
		}
	}
	return true
}

// Merge copies the owned flags of computed into current and keeps the rest.
func Merge(current, computed appointment.ErrorIndicators) appointment.ErrorIndicators {
	for _, f := range OwnedFlags {
		current.Set(f, computed.Get(f))
	}
	return current
}

// Relax clears owned flags of current that computed no longer raises, without
// raising new ones. It backs the clear-on-fix behaviour of field edits.
func Relax(current, computed appointment.ErrorIndicators) appointment.ErrorIndicators {
	for _, f := range OwnedFlags {
		if current.Get(f) && !computed.Get(f) {
			current.Set(f, false)
		}
	}
	return current
}
