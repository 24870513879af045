package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/appointment-editor/internal/appointment"
	"github.com/hackgods/appointment-editor/internal/config"
	"github.com/hackgods/appointment-editor/internal/editor"
	"github.com/hackgods/appointment-editor/internal/recurrence"
)

type formHandlerFunc func(w http.ResponseWriter, r *http.Request, f *editor.Form)

// withForm resolves the {id} URL param to an open editor session.
func withForm(sessions *editor.Sessions, fn formHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "id must be a valid UUID")
			return
		}
		f, err := sessions.Get(id)
		if err != nil {
			handleEditorError(w, err)
			return
		}
		fn(w, r, f)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func configHandler(cfg config.EditorConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newConfigResponse(cfg))
	}
}

func createSessionHandler(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sessions.Create()
		w.Header().Set("Location", "/editor/sessions/"+f.ID().String())
		writeJSON(w, http.StatusCreated, f.Snapshot())
	}
}

func getSessionHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func deleteSessionHandler(sessions *editor.Sessions) http.HandlerFunc {
	return withForm(sessions, func(w http.ResponseWriter, r *http.Request, f *editor.Form) {
		if err := sessions.Discard(f.ID()); err != nil {
			handleEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func updateDetailsHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	var raw map[string]json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	patch, err := decodeDetailsPatch(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_details", err.Error())
		return
	}
	if err := f.UpdateAppointmentDetails(patch); err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func updateErrorsHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	var raw map[string]bool
	if !decodeBody(w, r, &raw) {
		return
	}
	patch, err := decodeErrorPatch(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_error_flags", err.Error())
		return
	}
	if err := f.UpdateErrorIndicators(patch); err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

type selectRequest struct {
	Value json.RawMessage `json:"value"`
}

// selectFieldHandler runs the select operation of one field, which carries
// the field's side effects (cascades, end time, location).
func selectFieldHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	field := appointment.FieldName(chi.URLParam(r, "field"))

	var req selectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		req.Value = json.RawMessage("null")
	}

	var err error
	switch field {
	case appointment.FieldStartTime:
		var t *appointment.TimeOfDay
		if t, err = decodeTimeOfDay(req.Value); err == nil {
			err = f.SelectStartTime(t)
		} else {
			err = badRequest{err}
		}
	case appointment.FieldPatient, appointment.FieldSpeciality, appointment.FieldService,
		appointment.FieldServiceType, appointment.FieldLocation:
		var o *appointment.Option
		if o, err = decodeOption(req.Value); err != nil {
			err = badRequest{err}
			break
		}
		switch field {
		case appointment.FieldPatient:
			err = f.SelectPatient(o)
		case appointment.FieldSpeciality:
			err = f.SelectSpeciality(o)
		case appointment.FieldService:
			err = f.SelectService(o)
		case appointment.FieldServiceType:
			err = f.SelectServiceType(o)
		case appointment.FieldLocation:
			err = f.SelectLocation(o)
		}
	default:
		writeError(w, http.StatusNotFound, "unknown_field", "no select operation for "+string(field))
		return
	}
	if err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func addProviderHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	var req OptionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_provider", err.Error())
		return
	}
	o, err := req.toOption()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_provider", err.Error())
		return
	}
	if err := f.AddProvider(*o); err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func removeProviderHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	id, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_provider_id", "providerID must be a valid UUID")
		return
	}
	if err := f.RemoveProvider(id); err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func updateRecurrenceHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	var raw map[string]json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	patch, err := decodeRecurrencePatch(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_recurrence", err.Error())
		return
	}
	if err := f.UpdateRecurrence(patch); err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func toggleWeekDayHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	day, err := recurrence.ParseWeekday(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_week_day", err.Error())
		return
	}
	if err := f.ToggleWeekDay(day); err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

func previewHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	dates, err := f.Preview()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_recurrence", err.Error())
		return
	}
	resp := PreviewResponse{Dates: make([]string, len(dates))}
	for i, d := range dates {
		resp.Dates[i] = d.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

var searchKinds = map[appointment.SearchKind]bool{
	appointment.SearchPatient:     true,
	appointment.SearchSpeciality:  true,
	appointment.SearchService:     true,
	appointment.SearchServiceType: true,
	appointment.SearchLocation:    true,
	appointment.SearchProvider:    true,
}

func searchHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	kind := appointment.SearchKind(strings.ToLower(chi.URLParam(r, "kind")))
	if !searchKinds[kind] {
		writeError(w, http.StatusNotFound, "unknown_search_kind", "cannot search "+string(kind))
		return
	}

	opts, err := f.Search(r.Context(), kind, r.URL.Query().Get("q"))
	if err != nil {
		handleEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Kind: kind, Options: opts})
}

func saveHandler(w http.ResponseWriter, r *http.Request, f *editor.Form) {
	out, err := f.CheckAndSave(r.Context())
	if err != nil {
		handleEditorError(w, err)
		return
	}
	if !out.Saved {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationFailedResponse{
			Error:   "validation_failed",
			Flags:   out.Errors.Active(),
			Errors:  out.Errors,
			Session: f.Snapshot(),
		})
		return
	}
	resp := SaveResponse{Mode: out.Mode, Session: f.Snapshot()}
	if out.Result != nil {
		resp.AppointmentIDs = out.Result.AppointmentIDs
		resp.SeriesID = out.Result.SeriesID
	}
	writeJSON(w, http.StatusCreated, resp)
}

// badRequest marks a decoding error found after the body parsed.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }

func (b badRequest) Unwrap() error { return b.err }

func handleEditorError(w http.ResponseWriter, err error) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		writeError(w, http.StatusBadRequest, "invalid_request_body", br.Error())
	case errors.Is(err, editor.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, editor.ErrSubmitted),
		errors.Is(err, appointment.ErrDraftAlreadySaved):
		writeError(w, http.StatusConflict, "already_saved", err.Error())
	case errors.Is(err, editor.ErrSaveInProgress),
		errors.Is(err, appointment.ErrDraftBeingSaved):
		writeError(w, http.StatusConflict, "save_in_progress", "appointment is currently being saved, please retry shortly")
	case errors.Is(err, editor.ErrStaleSearch):
		writeError(w, http.StatusConflict, "stale_search", err.Error())
	case errors.Is(err, editor.ErrSearchDisabled):
		writeError(w, http.StatusNotFound, "search_disabled", err.Error())
	case errors.Is(err, editor.ErrInvalidTimeOfDay),
		errors.Is(err, appointment.ErrServiceScopeNeeded),
		errors.Is(err, appointment.ErrUnknownSearchKind):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, appointment.ErrIncompleteDetails),
		errors.Is(err, recurrence.ErrNoOccurrences),
		errors.Is(err, recurrence.ErrTooManyOccurrences),
		errors.Is(err, recurrence.ErrEndDateTooFar):
		writeError(w, http.StatusUnprocessableEntity, "unsaveable_appointment", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, editor.ErrNoSearcher), errors.Is(err, editor.ErrNoSaver):
		writeError(w, http.StatusNotImplemented, "not_configured", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
