package httpapi

import (
	"context"
	"net/http"
	"strings"
)

type AvailabilityHandler struct {
	Check func(ctx context.Context, source string) (int64, error)
}

type serverCheckReq struct {
	Source string `json:"source"`
}

// ServerCheck triggers the tracker's own availability pass, no tab needed.
func (h AvailabilityHandler) ServerCheck(w http.ResponseWriter, r *http.Request) {
	var req serverCheckReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if h.Check == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "unavailable", "tracker client not configured")
		return
	}
	n, err := h.Check(r.Context(), strings.TrimSpace(req.Source))
	if err != nil {
		WriteError(w, r, http.StatusBadGateway, "tracker_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"queued": n})
}
