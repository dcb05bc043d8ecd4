package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/harvest"
)

type TabsHandler struct {
	Tabs TabController
}

type openTabReq struct {
	URL string `json:"url"`
}

func (h TabsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Tabs.List())
}

func (h TabsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openTabReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL != "" && !domain.IsAbsoluteURL(req.URL) {
		WriteError(w, r, http.StatusBadRequest, "invalid_url", "url must be an absolute http(s) URL")
		return
	}
	info, err := h.Tabs.Open(r.Context(), req.URL)
	if err != nil {
		if info.ID != "" {
			// The tab exists; only the first navigation failed.
			WriteError(w, r, http.StatusBadGateway, "navigate_failed", err.Error())
			return
		}
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, info)
}

func (h TabsHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Tabs.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h TabsHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Tabs.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (h TabsHandler) Start(w http.ResponseWriter, r *http.Request) {
	kind, err := harvest.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "unknown_workflow", err.Error())
		return
	}
	var opts harvest.StartOptions
	if err := decodeBody(r, &opts); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if opts.DelayMs < 0 || opts.MaxPages < 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_options", "delayMs and maxPages must be >= 0")
		return
	}

	err = h.Tabs.Start(r.Context(), chi.URLParam(r, "id"), kind, opts)
	switch {
	case errors.Is(err, harvest.ErrNothingToDo):
		writeJSON(w, map[string]any{"started": false, "workflow": kind, "message": err.Error()})
	case err != nil:
		writeErr(w, r, err)
	default:
		WriteJSON(w, http.StatusAccepted, map[string]any{"started": true, "workflow": kind})
	}
}

func (h TabsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.Tabs.Stop(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
