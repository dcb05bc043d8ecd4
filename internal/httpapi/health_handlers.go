package httpapi

import (
	"net/http"
	"time"

	"jobharvest-engine/internal/events"
)

type HealthHandler struct {
	Tabs TabController
	Hub  *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	}
	if h.Tabs != nil {
		out["tabs"] = len(h.Tabs.List())
	}
	if h.Hub != nil {
		out["subscribers"] = h.Hub.Subscribers()
	}
	writeJSON(w, out)
}
