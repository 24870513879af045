package recurrence

import (
	"errors"
	"time"
)

var (
	ErrStartUnset         = errors.New("recurrence start is not selected")
	ErrStartDateMissing   = errors.New("recurrence start date is not selected")
	ErrEndUnset           = errors.New("recurrence end type is not selected")
	ErrEndDateMissing     = errors.New("recurrence end date is not selected")
	ErrEndBeforeStart     = errors.New("recurrence end date is before start date")
	ErrInvalidOccurrences = errors.New("number of occurrences must be at least 1")
	ErrInvalidPeriod      = errors.New("recurrence period must be between 1 and 365")
	ErrTooManyOccurrences = errors.New("number of occurrences is above the allowed maximum")
	ErrEndDateTooFar      = errors.New("recurrence end date yields more occurrences than allowed")
	ErrNoOccurrences      = errors.New("recurrence yields no date before its end date")
	ErrNoWeekDays         = errors.New("no week days selected")
	ErrUnknownFrequency   = errors.New("unknown recurrence frequency")
)

// DefaultExpandLimit caps the dates generated for a rule that never ends.
const DefaultExpandLimit = 104

// MaxPeriod is the largest repeat-every value, in days or weeks.
const MaxPeriod = 365

// End is a resolved end condition.
type End struct {
	Kind        EndKind
	Occurrences int
	Date        time.Time
}

func IsValidWeekSelection(f Frequency, days WeekdaySet) bool {
	return f != FrequencyWeek || !days.IsEmpty()
}

func ResolveStartCondition(c StartCondition, today time.Time) (time.Time, error) {
	switch c.Kind {
	case StartToday:
		return DateOf(today), nil
	case StartFrom:
		if c.Date == nil {
			return time.Time{}, ErrStartDateMissing
		}
		return DateOf(*c.Date), nil
	default:
		return time.Time{}, ErrStartUnset
	}
}

// ResolveEndCondition resolves c against an already resolved start date.
// An "after" condition without a count takes defaultOccurrences.
func ResolveEndCondition(c EndCondition, start time.Time, defaultOccurrences int) (End, error) {
	switch c.Kind {
	case EndNever:
		return End{Kind: EndNever}, nil
	case EndAfter:
		n := defaultOccurrences
		if c.Occurrences != nil {
			n = *c.Occurrences
		}
		if n < 1 {
			return End{}, ErrInvalidOccurrences
		}
		return End{Kind: EndAfter, Occurrences: n}, nil
	case EndOn:
		if c.Date == nil {
			return End{}, ErrEndDateMissing
		}
		d := DateOf(*c.Date)
		if !start.IsZero() && d.Before(DateOf(start)) {
			return End{}, ErrEndBeforeStart
		}
		return End{Kind: EndOn, Date: d}, nil
	default:
		return End{}, ErrEndUnset
	}
}

// Check holds the outcome of inspecting every part of a rule. A nil field
// means that part resolved.
type Check struct {
	Start    error
	End      error
	Period   error
	WeekDays error
}

func (c Check) OK() bool {
	return c.Start == nil && c.End == nil && c.Period == nil && c.WeekDays == nil
}

// Err returns the first failing part, in start, end, period, week days order.
func (c Check) Err() error {
	for _, err := range []error{c.Start, c.End, c.Period, c.WeekDays} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Inspect resolves every part of s independently so that callers can report
// all problems at once. An end date is only compared with the start date
// when the start resolved. When the whole rule resolves, its expansion is
// checked against limit: an "after" count or an end date that would produce
// more than limit dates fails, and so does an end date before the first
// occurrence. limit <= 0 means DefaultExpandLimit.
func Inspect(s Settings, today time.Time, defaultOccurrences, limit int) Check {
	if limit <= 0 {
		limit = DefaultExpandLimit
	}
	var c Check
	start, err := ResolveStartCondition(s.Start, today)
	c.Start = err
	end, endErr := ResolveEndCondition(s.End, start, defaultOccurrences)
	c.End = endErr
	if s.Period < 1 || s.Period > MaxPeriod {
		c.Period = ErrInvalidPeriod
	}
	switch s.Frequency {
	case FrequencyDay, FrequencyWeek:
	default:
		c.Period = ErrUnknownFrequency
	}
	if !IsValidWeekSelection(s.Frequency, s.WeekDays) {
		c.WeekDays = ErrNoWeekDays
	}
	if !c.OK() {
		return c
	}

	switch end.Kind {
	case EndAfter:
		if end.Occurrences > limit {
			c.End = ErrTooManyOccurrences
		}
	case EndOn:
		n := len(generate(s, start, end, limit+1))
		if n == 0 {
			c.End = ErrNoOccurrences
		} else if n > limit {
			c.End = ErrEndDateTooFar
		}
	}
	return c
}

// Expand lists the dates the rule generates, starting at the resolved start
// date. Rules that never end are cut at limit dates; limit <= 0 means
// DefaultExpandLimit. Rules whose end would exceed limit are rejected by
// Inspect rather than cut.
func Expand(s Settings, today time.Time, defaultOccurrences, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = DefaultExpandLimit
	}
	if err := Inspect(s, today, defaultOccurrences, limit).Err(); err != nil {
		return nil, err
	}
	start, _ := ResolveStartCondition(s.Start, today)
	end, _ := ResolveEndCondition(s.End, start, defaultOccurrences)

	switch end.Kind {
	case EndAfter:
		return generate(s, start, end, end.Occurrences), nil
	default:
		return generate(s, start, end, limit), nil
	}
}

// generate walks the rule from start and returns at most max dates, stopping
// at the end date of an EndOn rule. s must have passed Inspect's part checks:
// a positive period and, when weekly, at least one day.
func generate(s Settings, start time.Time, end End, max int) []time.Time {
	var dates []time.Time
	past := func(d time.Time) bool {
		return end.Kind == EndOn && d.After(end.Date)
	}

	switch s.Frequency {
	case FrequencyDay:
		for d := start; len(dates) < max && !past(d); d = d.AddDate(0, 0, s.Period) {
			dates = append(dates, d)
		}
	case FrequencyWeek:
		// Weeks are counted from the Sunday of the start week; only every
		// Period-th week is visited.
		for week := start.AddDate(0, 0, -int(start.Weekday())); len(dates) < max; week = week.AddDate(0, 0, 7*s.Period) {
			for i := 0; i < 7 && len(dates) < max; i++ {
				d := week.AddDate(0, 0, i)
				if past(d) {
					return dates
				}
				if d.Before(start) || !s.WeekDays.Has(d.Weekday()) {
					continue
				}
				dates = append(dates, d)
			}
		}
	}
	return dates
}
