package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/editor"
	"github.com/hackgods/appointment-editor/internal/recurrence"
)

// Patch bodies are decoded key by key: a missing key leaves the field alone,
// null clears it.

// periodRule rejects periods no rule can use. Values below 1 pass through so
// the editor raises its period flag.
var periodRule = fmt.Sprintf("lte=%d", recurrence.MaxPeriod)

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}

func decodeOption(msg json.RawMessage) (*appointment.Option, error) {
	if isNull(msg) {
		return nil, nil
	}
	var req OptionRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req.toOption()
}

func decodeProviders(msg json.RawMessage) ([]appointment.Provider, error) {
	if isNull(msg) {
		return nil, nil
	}
	var reqs []ProviderRequest
	if err := json.Unmarshal(msg, &reqs); err != nil {
		return nil, err
	}
	providers := make([]appointment.Provider, 0, len(reqs))
	for _, req := range reqs {
		if err := validateRequest(req); err != nil {
			return nil, err
		}
		o, err := req.toOption()
		if err != nil {
			return nil, err
		}
		providers = append(providers, appointment.Provider{Option: *o, Response: appointment.ProviderResponse(req.Response)})
	}
	return providers, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return d, nil
}

func decodeDate(msg json.RawMessage) (*time.Time, error) {
	if isNull(msg) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, err
	}
	d, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeTimeOfDay(msg json.RawMessage) (*appointment.TimeOfDay, error) {
	if isNull(msg) {
		return nil, nil
	}
	var t appointment.TimeOfDay
	if err := json.Unmarshal(msg, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeDetailsPatch(raw map[string]json.RawMessage) (appointment.DetailsPatch, error) {
	var p appointment.DetailsPatch
	for key, msg := range raw {
		var err error
		switch appointment.FieldName(key) {
		case appointment.FieldPatient:
			var o *appointment.Option
			if o, err = decodeOption(msg); err == nil {
				p.Patient = appointment.Set(o)
			}
		case appointment.FieldSpeciality:
			var o *appointment.Option
			if o, err = decodeOption(msg); err == nil {
				p.Speciality = appointment.Set(o)
			}
		case appointment.FieldService:
			var o *appointment.Option
			if o, err = decodeOption(msg); err == nil {
				p.Service = appointment.Set(o)
			}
		case appointment.FieldServiceType:
			var o *appointment.Option
			if o, err = decodeOption(msg); err == nil {
				p.ServiceType = appointment.Set(o)
			}
		case appointment.FieldLocation:
			var o *appointment.Option
			if o, err = decodeOption(msg); err == nil {
				p.Location = appointment.Set(o)
			}
		case appointment.FieldProviders:
			var ps []appointment.Provider
			if ps, err = decodeProviders(msg); err == nil {
				p.Providers = appointment.Set(ps)
			}
		case appointment.FieldDate:
			var d *time.Time
			if d, err = decodeDate(msg); err == nil {
				p.Date = appointment.Set(d)
			}
		case appointment.FieldStartTime:
			var t *appointment.TimeOfDay
			if t, err = decodeTimeOfDay(msg); err == nil {
				p.StartTime = appointment.Set(t)
			}
		case appointment.FieldEndTime:
			var t *appointment.TimeOfDay
			if t, err = decodeTimeOfDay(msg); err == nil {
				p.EndTime = appointment.Set(t)
			}
		case appointment.FieldNotes:
			var s string
			if !isNull(msg) {
				err = json.Unmarshal(msg, &s)
			}
			if err == nil {
				p.Notes = appointment.Set(s)
			}
		default:
			return p, fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("%s: %w", key, err)
		}
	}
	return p, nil
}

func decodeRecurrencePatch(raw map[string]json.RawMessage) (editor.RecurrencePatch, error) {
	var p editor.RecurrencePatch
	for key, msg := range raw {
		var err error
		switch key {
		case "enabled":
			var v bool
			if err = json.Unmarshal(msg, &v); err == nil {
				p.Enabled = appointment.Set(v)
			}
		case "frequency":
			var v string
			if err = json.Unmarshal(msg, &v); err == nil {
				if err = validate.Var(v, "oneof=day week"); err == nil {
					p.Frequency = appointment.Set(recurrence.Frequency(v))
				}
			}
		case "period":
			var v int
			if err = json.Unmarshal(msg, &v); err == nil {
				if err = validate.Var(v, periodRule); err == nil {
					p.Period = appointment.Set(v)
				}
			}
		case "week_days":
			var v recurrence.WeekdaySet
			if err = json.Unmarshal(msg, &v); err == nil {
				p.WeekDays = appointment.Set(v)
			}
		case "start":
			var v recurrence.StartCondition
			if v, err = decodeStart(msg); err == nil {
				p.Start = appointment.Set(v)
			}
		case "end":
			var v recurrence.EndCondition
			if v, err = decodeEnd(msg); err == nil {
				p.End = appointment.Set(v)
			}
		default:
			return p, fmt.Errorf("unknown field %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("%s: %w", key, err)
		}
	}
	return p, nil
}

func decodeStart(msg json.RawMessage) (recurrence.StartCondition, error) {
	if isNull(msg) {
		return recurrence.StartCondition{}, nil
	}
	var req StartRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return recurrence.StartCondition{}, err
	}
	if err := validateRequest(req); err != nil {
		return recurrence.StartCondition{}, err
	}
	c := recurrence.StartCondition{Kind: recurrence.StartKind(req.Kind)}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return recurrence.StartCondition{}, err
		}
		c.Date = &d
	}
	return c, nil
}

func decodeEnd(msg json.RawMessage) (recurrence.EndCondition, error) {
	if isNull(msg) {
		return recurrence.EndCondition{}, nil
	}
	var req EndRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return recurrence.EndCondition{}, err
	}
	if err := validateRequest(req); err != nil {
		return recurrence.EndCondition{}, err
	}
	c := recurrence.EndCondition{Kind: recurrence.EndKind(req.Kind), Occurrences: req.Occurrences}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return recurrence.EndCondition{}, err
		}
		c.Date = &d
	}
	return c, nil
}

func decodeErrorPatch(raw map[string]bool) (appointment.ErrorPatch, error) {
	known := make(map[appointment.ErrorFlag]bool, len(appointment.AllFlags))
	for _, f := range appointment.AllFlags {
		known[f] = true
	}
	p := make(appointment.ErrorPatch, len(raw))
	for key, v := range raw {
		f := appointment.ErrorFlag(key)
		if !known[f] {
			return nil, fmt.Errorf("unknown error flag %q", key)
		}
		p[f] = v
	}
	return p, nil
}
