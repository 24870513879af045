package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/config"
	"github.com/hackgods/appointment-editor/internal/recurrence"
)

const dateLayout = "2006-01-02"

type OptionRequest struct {
	ID           string         `json:"id" validate:"required,uuid"`
	Label        string         `json:"label" validate:"max=200"`
	DurationMins int            `json:"duration_mins" validate:"gte=0,lte=1440"`
	Location     *OptionRequest `json:"location"`
}

func (o OptionRequest) toOption() (*appointment.Option, error) {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return nil, err
	}
	opt := &appointment.Option{ID: id, Label: o.Label, DurationMins: o.DurationMins}
	if o.Location != nil {
		if opt.Location, err = o.Location.toOption(); err != nil {
			return nil, err
		}
	}
	return opt, nil
}

type ProviderRequest struct {
	OptionRequest
	Response string `json:"response" validate:"omitempty,oneof=ACCEPTED CANCELLED"`
}

type StartRequest struct {
	Kind string  `json:"kind" validate:"omitempty,oneof=today from"`
	Date *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type EndRequest struct {
	Kind        string  `json:"kind" validate:"omitempty,oneof=never after on"`
	Occurrences *int    `json:"occurrences"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ValidationFailedResponse struct {
	Error   string                      `json:"error"`
	Flags   []appointment.ErrorFlag     `json:"flags"`
	Errors  appointment.ErrorIndicators `json:"errors"`
	Session appointment.Snapshot        `json:"session"`
}

type SaveResponse struct {
	Mode           appointment.Mode     `json:"mode"`
	AppointmentIDs []uuid.UUID          `json:"appointment_ids"`
	SeriesID       *uuid.UUID           `json:"series_id,omitempty"`
	Session        appointment.Snapshot `json:"session"`
}

type SearchResponse struct {
	Kind    appointment.SearchKind `json:"kind"`
	Options []appointment.Option   `json:"options"`
}

type PreviewResponse struct {
	Dates []string `json:"dates"`
}

type ConfigResponse struct {
	config.EditorConfig
	StartOfWeek            string   `json:"start_of_week"`
	WeekDayOrder           []string `json:"week_day_order"`
	ProviderErrorTimeoutMs int64    `json:"provider_error_time_out_interval_ms"`
	DefaultDurationMins    int      `json:"default_duration_mins"`
}

func newConfigResponse(cfg config.EditorConfig) ConfigResponse {
	order := recurrence.DisplayOrder(cfg.StartOfWeek)
	names := make([]string, len(order))
	for i, d := range order {
		names[i] = recurrence.Abbrev(d)
	}
	return ConfigResponse{
		EditorConfig:           cfg,
		StartOfWeek:            cfg.StartOfWeek.String(),
		WeekDayOrder:           names,
		ProviderErrorTimeoutMs: cfg.ProviderErrorTimeout.Milliseconds(),
		DefaultDurationMins:    int(cfg.DefaultDuration / time.Minute),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateRequest(s any) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed: %s", formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", e.Namespace(), e.Tag()))
	}
	return strings.Join(msgs, ", ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
