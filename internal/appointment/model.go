package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-editor/internal/recurrence"
)

type ProviderResponse string

const (
	ResponsePending   ProviderResponse = ""
	ResponseAccepted  ProviderResponse = "ACCEPTED"
	ResponseCancelled ProviderResponse = "CANCELLED"
)

type Mode string

const (
	ModeSingle    Mode = "single"
	ModeRecurring Mode = "recurring"
)

// ModeOf reports recurring mode when the recurrence block is enabled.
func ModeOf(s recurrence.Settings) Mode {
	if s.Enabled {
		return ModeRecurring
	}
	return ModeSingle
}

// Option is a selectable search result. Services and service types carry a
// duration, services may carry the location they are delivered at.
type Option struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	DurationMins int       `json:"duration_mins,omitempty"`
	Location     *Option   `json:"location,omitempty"`
}

type Provider struct {
	Option
	Response ProviderResponse `json:"response,omitempty"`
}

// ValidProviders drops providers that cancelled.
func ValidProviders(providers []Provider) []Provider {
	valid := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.Response != ResponseCancelled {
			valid = append(valid, p)
		}
	}
	return valid
}

// Details is the appointment being edited. Nil means not selected.
type Details struct {
	Patient     *Option    `json:"patient"`
	Speciality  *Option    `json:"speciality"`
	Service     *Option    `json:"service"`
	ServiceType *Option    `json:"service_type"`
	Location    *Option    `json:"location"`
	Providers   []Provider `json:"providers"`
	Date        *time.Time `json:"date"`
	StartTime   *TimeOfDay `json:"start_time"`
	EndTime     *TimeOfDay `json:"end_time"`
	Notes       string     `json:"notes"`
}

// Clone returns a copy that shares no provider slice with d.
func (d Details) Clone() Details {
	c := d
	c.Providers = append([]Provider(nil), d.Providers...)
	return c
}

// Snapshot is everything a client needs to render the editor.
type Snapshot struct {
	SessionID  uuid.UUID           `json:"session_id"`
	Details    Details             `json:"details"`
	Recurrence recurrence.Settings `json:"recurrence"`
	Errors     ErrorIndicators     `json:"errors"`
	State      recurrence.State    `json:"state"`
	Submitted  bool                `json:"submitted"`
}
