package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobharvest-engine/internal/browser"
	"jobharvest-engine/internal/harvest"
	"jobharvest-engine/internal/poll"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeErr maps domain errors to statuses.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, browser.ErrTabNotFound):
		WriteError(w, r, http.StatusNotFound, "tab_not_found", err.Error())
	case errors.Is(err, poll.ErrUnknownSchedule):
		WriteError(w, r, http.StatusNotFound, "schedule_not_found", err.Error())
	case errors.Is(err, browser.ErrTabNotReady):
		WriteError(w, r, http.StatusConflict, "tab_not_ready", err.Error())
	case errors.Is(err, harvest.ErrWorkflowActive):
		WriteError(w, r, http.StatusConflict, "workflow_active", err.Error())
	case errors.Is(err, harvest.ErrStopped):
		WriteError(w, r, http.StatusConflict, "workflow_stopped", err.Error())
	case errors.Is(err, poll.ErrAlreadyRunning):
		WriteError(w, r, http.StatusConflict, "schedule_running", err.Error())
	case errors.Is(err, harvest.ErrNoAdapter):
		WriteError(w, r, http.StatusUnprocessableEntity, "unsupported_site", err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
