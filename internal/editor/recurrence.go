package editor

import (
	"time"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/recurrence"
)

// RecurrencePatch is a partial update of the recurrence block.
type RecurrencePatch struct {
	Enabled   appointment.Optional[bool]
	Frequency appointment.Optional[recurrence.Frequency]
	Period    appointment.Optional[int]
	WeekDays  appointment.Optional[recurrence.WeekdaySet]
	Start     appointment.Optional[recurrence.StartCondition]
	End       appointment.Optional[recurrence.EndCondition]
}

// UpdateRecurrence merges p into the recurrence block. Picking "after" without
// a count fills in the configured default number of occurrences.
func (f *Form) UpdateRecurrence(p RecurrencePatch) error {
	return f.mutate(func() error {
		s := f.rec
		if p.Frequency.IsSet() {
			s.Frequency = p.Frequency.Value()
		}
		if p.Period.IsSet() {
			s.Period = p.Period.Value()
		}
		if p.WeekDays.IsSet() {
			s.WeekDays = p.WeekDays.Value()
		}
		if p.Start.IsSet() {
			s.Start = p.Start.Value()
		}
		if p.End.IsSet() {
			end := p.End.Value()
			if end.Kind == recurrence.EndAfter && end.Occurrences == nil {
				n := f.cfg.DefaultOccurrences
				end.Occurrences = &n
			}
			s.End = end
		}
		f.rec = s

		switch {
		case p.Enabled.IsSet() && p.Enabled.Value() != f.rec.Enabled:
			f.setEnabledLocked(p.Enabled.Value())
		default:
			f.state = f.state.Next(recurrence.EventEdit)
		}
		f.relaxLocked()
		return nil
	})
}

// EnableRecurrence switches between single and recurring mode.
func (f *Form) EnableRecurrence(enabled bool) error {
	return f.UpdateRecurrence(RecurrencePatch{Enabled: appointment.Set(enabled)})
}

func (f *Form) setEnabledLocked(enabled bool) {
	f.rec.Enabled = enabled
	if enabled {
		f.state = f.state.Next(recurrence.EventEnable)
		return
	}
	f.state = f.state.Next(recurrence.EventDisable)
	// Flags that only exist in recurring mode must not linger.
	f.errors = clearRecurringFlags(f.errors)
}

func clearRecurringFlags(e appointment.ErrorIndicators) appointment.ErrorIndicators {
	for _, fl := range recurringOnlyFlags {
		e.Set(fl, false)
	}
	return e
}

var recurringOnlyFlags = []appointment.ErrorFlag{
	appointment.FlagStartDate,
	appointment.FlagEndType,
	appointment.FlagEndDate,
	appointment.FlagOccurrences,
	appointment.FlagPeriod,
	appointment.FlagWeekDays,
	appointment.FlagRecurrencePeriod,
}

// ToggleWeekDay flips d in the week day set.
func (f *Form) ToggleWeekDay(d time.Weekday) error {
	return f.mutate(func() error {
		f.rec.WeekDays = f.rec.WeekDays.Toggle(d)
		f.state = f.state.Next(recurrence.EventEdit)
		f.relaxLocked()
		return nil
	})
}

// WeekDayOrder is the display order of the week day buttons.
func (f *Form) WeekDayOrder() []time.Weekday {
	return recurrence.DisplayOrder(f.cfg.StartOfWeek)
}

// Preview lists the dates the current recurrence would book.
func (f *Form) Preview() ([]time.Time, error) {
	f.mu.Lock()
	s := f.rec
	today := f.today()
	f.mu.Unlock()
	return recurrence.Expand(s, today, f.cfg.DefaultOccurrences, f.cfg.MaxOccurrences)
}
