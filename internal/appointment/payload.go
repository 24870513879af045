package appointment

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/appointment-editor/internal/recurrence"
)

var ErrIncompleteDetails = errors.New("appointment details are incomplete")

const (
	AppointmentKindScheduled = "Scheduled"
	StatusScheduled          = "Scheduled"
)

type PayloadProvider struct {
	ProviderID uuid.UUID        `json:"provider_id"`
	Response   ProviderResponse `json:"response,omitempty"`
}

// AppointmentPayload is what the save collaborator receives for one appointment.
type AppointmentPayload struct {
	SessionID       uuid.UUID         `json:"session_id"`
	PatientID       uuid.UUID         `json:"patient_id"`
	ServiceID       uuid.UUID         `json:"service_id"`
	ServiceTypeID   *uuid.UUID        `json:"service_type_id,omitempty"`
	LocationID      *uuid.UUID        `json:"location_id,omitempty"`
	Providers       []PayloadProvider `json:"providers"`
	StartDateTime   time.Time         `json:"start_date_time"`
	EndDateTime     time.Time         `json:"end_date_time"`
	Comments        string            `json:"comments,omitempty"`
	AppointmentKind string            `json:"appointment_kind"`
	Status          string            `json:"status"`
}

type RecurringPattern struct {
	Type        string     `json:"type"` // DAY or WEEK
	Period      int        `json:"period"`
	Occurrences *int       `json:"occurrences,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	DaysOfWeek  []string   `json:"days_of_week,omitempty"`
}

// RecurringPayload carries the first appointment of the series, the pattern
// and the dates the pattern expands to.
type RecurringPayload struct {
	Appointment AppointmentPayload `json:"appointment_request"`
	Pattern     RecurringPattern   `json:"recurring_pattern"`
	Dates       []time.Time        `json:"dates"`
}

func optionID(o *Option) *uuid.UUID {
	if o == nil {
		return nil
	}
	id := o.ID
	return &id
}

// NewAppointmentPayload assembles the payload for an appointment on date.
func NewAppointmentPayload(sessionID uuid.UUID, d Details, date time.Time) (AppointmentPayload, error) {
	if d.Patient == nil || d.Service == nil || d.StartTime == nil || d.EndTime == nil {
		return AppointmentPayload{}, ErrIncompleteDetails
	}
	providers := make([]PayloadProvider, 0, len(d.Providers))
	for _, p := range d.Providers {
		providers = append(providers, PayloadProvider{ProviderID: p.ID, Response: p.Response})
	}
	return AppointmentPayload{
		SessionID:       sessionID,
		PatientID:       d.Patient.ID,
		ServiceID:       d.Service.ID,
		ServiceTypeID:   optionID(d.ServiceType),
		LocationID:      optionID(d.Location),
		Providers:       providers,
		StartDateTime:   d.StartTime.On(date),
		EndDateTime:     d.EndTime.On(date),
		Comments:        strings.TrimSpace(d.Notes),
		AppointmentKind: AppointmentKindScheduled,
		Status:          StatusScheduled,
	}, nil
}

// NewRecurringPayload resolves s and expands it into concrete dates. limit
// caps the dates of a rule that never ends.
func NewRecurringPayload(sessionID uuid.UUID, d Details, s recurrence.Settings, today time.Time, defaultOccurrences, limit int) (RecurringPayload, error) {
	dates, err := recurrence.Expand(s, today, defaultOccurrences, limit)
	if err != nil {
		return RecurringPayload{}, err
	}
	if len(dates) == 0 {
		return RecurringPayload{}, ErrIncompleteDetails
	}
	first, err := NewAppointmentPayload(sessionID, d, dates[0])
	if err != nil {
		return RecurringPayload{}, err
	}

	start, _ := recurrence.ResolveStartCondition(s.Start, today)
	end, _ := recurrence.ResolveEndCondition(s.End, start, defaultOccurrences)
	pattern := RecurringPattern{Type: "DAY", Period: s.Period}
	if s.Frequency == recurrence.FrequencyWeek {
		pattern.Type = "WEEK"
		for _, day := range s.WeekDays.Days() {
			pattern.DaysOfWeek = append(pattern.DaysOfWeek, strings.ToUpper(day.String()))
		}
	}
	switch end.Kind {
	case recurrence.EndAfter:
		n := end.Occurrences
		pattern.Occurrences = &n
	case recurrence.EndOn:
		ed := end.Date
		pattern.EndDate = &ed
	}

	return RecurringPayload{Appointment: first, Pattern: pattern, Dates: dates}, nil
}
