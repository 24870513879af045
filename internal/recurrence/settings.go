package recurrence

import "time"

type Frequency string

const (
	FrequencyDay  Frequency = "day"
	FrequencyWeek Frequency = "week"
)

type StartKind string

const (
	StartUnset StartKind = ""
	StartToday StartKind = "today"
	StartFrom  StartKind = "from"
)

type EndKind string

const (
	EndUnset EndKind = ""
	EndNever EndKind = "never"
	EndAfter EndKind = "after"
	EndOn    EndKind = "on"
)

type StartCondition struct {
	Kind StartKind  `json:"kind"`
	Date *time.Time `json:"date,omitempty"`
}

type EndCondition struct {
	Kind        EndKind    `json:"kind"`
	Occurrences *int       `json:"occurrences,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// Settings is the recurrence block of the editor.
type Settings struct {
	Enabled   bool           `json:"enabled"`
	Frequency Frequency      `json:"frequency"`
	Period    int            `json:"period"` // repeat every Period days or weeks
	WeekDays  WeekdaySet     `json:"week_days"`
	Start     StartCondition `json:"start"`
	End       EndCondition   `json:"end"`
}

// DefaultSettings is the state of the recurrence block when the editor mounts.
func DefaultSettings() Settings {
	return Settings{
		Frequency: FrequencyDay,
		Period:    1,
	}
}

// DateOf drops the clock part of t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
