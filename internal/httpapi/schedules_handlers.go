package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"jobharvest-engine/internal/poll"
)

type SchedulesHandler struct {
	Schedules Schedules
}

func (h SchedulesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Schedules == nil {
		writeJSON(w, []poll.RunStatus{})
		return
	}
	writeJSON(w, h.Schedules.Statuses())
}

func (h SchedulesHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Schedules == nil {
		writeErr(w, r, poll.ErrUnknownSchedule)
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.Schedules.RunNow(name); err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "name": name})
}
