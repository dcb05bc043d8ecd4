// Package tracker is a development job tracker speaking the same HTTP
// contract the harvester submits to, backed by sqlite.
package tracker

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/httpapi"
)

type Options struct {
	// APIKey, when set, must be sent in APIKeyHeader.
	APIKey       string
	APIKeyHeader string
	// RecheckAfter is how long a checked job stays off the check queue.
	RecheckAfter time.Duration
	// Hub receives job.created and job.unavailable events when set.
	Hub *events.Hub
}

type Server struct {
	db   *sql.DB
	opts Options
}

func New(db *sql.DB, opts Options) *Server {
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}
	if opts.RecheckAfter <= 0 {
		opts.RecheckAfter = 24 * time.Hour
	}
	return &Server{db: db, opts: opts}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(httpapi.RequestID, httpapi.AccessLog, httpapi.Recover, httpapi.Cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Post("/db/checkpoint", s.checkpoint)

	r.Group(func(r chi.Router) {
		r.Use(s.requireKey)

		r.Get("/jobs", s.list)
		r.Post("/jobs", s.create)
		r.Put("/jobs/description", s.updateDescription)
		r.Get("/jobs/needing-descriptions", s.needingDescriptions)
		r.Get("/jobs/needing-availability-check", s.needingCheck)
		r.Post("/jobs/mark-unavailable", s.markUnavailableByURL)
		r.Post("/jobs/check-availability", s.checkAvailability)
		r.Get("/jobs/{id}", s.get)
		r.Post("/jobs/{id}/mark-unavailable", s.markUnavailable)
		r.Post("/jobs/{id}/mark-checked", s.markChecked)
	})
	return r
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" {
			got := r.Header.Get(s.opts.APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.APIKey)) != 1 {
				httpapi.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "missing or invalid api key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) publish(r *http.Request, typ string, data any) {
	if s.opts.Hub != nil {
		s.opts.Hub.Publish(events.MakeEvent(httpapi.RequestIDFrom(r.Context()), typ, 1, data))
	}
}
