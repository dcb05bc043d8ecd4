package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jobharvest-engine/internal/events"
)

type EventsHandler struct {
	Hub *events.Hub
	// Heartbeat keeps idle proxies from closing the stream. Zero means 15s.
	Heartbeat time.Duration
}

// ServeSSE streams hub events. ?session=<tab id> limits the stream to one tab.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	session := r.URL.Query().Get("session")
	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	// Ping as a proper event envelope
	reqID := RequestIDFrom(r.Context())
	ping := events.MakeEvent(reqID, "ping", 1, nil)
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", ping)
	flusher.Flush()

	hb := h.Heartbeat
	if hb <= 0 {
		hb = 15 * time.Second
	}
	t := time.NewTicker(hb)
	defer t.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-t.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if session != "" && sessionOf(msg) != session {
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func sessionOf(msg string) string {
	var e struct {
		Session string `json:"session"`
	}
	_ = json.Unmarshal([]byte(msg), &e)
	return e.Session
}
