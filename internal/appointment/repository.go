package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

type SearchKind string

const (
	SearchPatient     SearchKind = "patient"
	SearchSpeciality  SearchKind = "speciality"
	SearchService     SearchKind = "service"
	SearchServiceType SearchKind = "service_type"
	SearchLocation    SearchKind = "location"
	SearchProvider    SearchKind = "provider"
)

// SearchScope narrows a search by the current selection.
type SearchScope struct {
	SpecialityID *uuid.UUID
	ServiceID    *uuid.UUID
}

// Appointment is a stored appointment row.
type Appointment struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	SeriesID      *uuid.UUID
	PatientID     uuid.UUID
	ServiceID     uuid.UUID
	ServiceTypeID *uuid.UUID
	LocationID    *uuid.UUID
	StartDateTime time.Time
	EndDateTime   time.Time
	Comments      string
	Status        string
	CreatedAt     time.Time
}

// Series is a stored recurring pattern with its generated appointments.
type Series struct {
	ID           uuid.UUID
	SessionID    uuid.UUID
	Pattern      RecurringPattern
	Appointments []Appointment
	CreatedAt    time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// SaveResult is returned to the editor after a successful save.
type SaveResult struct {
	AppointmentIDs []uuid.UUID `json:"appointment_ids"`
	SeriesID       *uuid.UUID  `json:"series_id,omitempty"`
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Lookups backing the search widgets. An empty query matches everything.
	SearchPatients(ctx context.Context, query string, limit int) ([]Option, error)
	SearchSpecialities(ctx context.Context, query string, limit int) ([]Option, error)
	SearchServices(ctx context.Context, query string, specialityID *uuid.UUID, limit int) ([]Option, error)
	SearchServiceTypes(ctx context.Context, query string, serviceID uuid.UUID, limit int) ([]Option, error)
	SearchLocations(ctx context.Context, query string, limit int) ([]Option, error)
	SearchProviders(ctx context.Context, query string, limit int) ([]Option, error)

	GetPatientByID(ctx context.Context, id uuid.UUID) (*Option, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*Option, error)

	// For double submit checks
	GetAppointmentBySession(ctx context.Context, sessionID uuid.UUID) (*Appointment, error)

	CreateAppointment(ctx context.Context, p AppointmentPayload) (*Appointment, error)
	CreateSeries(ctx context.Context, p RecurringPayload) (*Series, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
