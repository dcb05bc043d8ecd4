package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, AccessLog, Recover, Cors)

	hh := HealthHandler{Tabs: d.Tabs, Hub: d.Hub}
	r.Get("/health", hh.Health)

	r.Group(func(r chi.Router) {
		if d.Token != "" {
			r.Use(RequireToken(d.Token))
		}

		// Tabs and workflows
		th := TabsHandler{Tabs: d.Tabs}
		r.Get("/tabs", th.List)
		r.Post("/tabs", th.Open)
		r.Route("/tabs/{id}", func(r chi.Router) {
			r.Delete("/", th.Close)
			r.Get("/status", th.Status)
			r.Post("/workflows/{kind}", th.Start)
			r.Delete("/workflow", th.Stop)
		})

		ah := AvailabilityHandler{Check: d.CheckAvailability}
		r.Post("/availability/server-check", ah.ServerCheck)

		// Schedules
		sch := SchedulesHandler{Schedules: d.Schedules}
		r.Get("/schedules", sch.List)
		r.Post("/schedules/{name}/run", sch.Run)

		// Config
		ch := ConfigHandler{
			CfgVal:      d.CfgVal,
			UserCfgPath: d.UserCfgPath,
			LoadCfg:     d.LoadCfg,
		}
		r.Get("/config", ch.Get)
		r.Put("/config", ch.Put)
		r.Get("/config/path", ch.Path)
		r.Get("/config/validate", ch.Validate)

		// Secrets (use cfgVal, NOT a snapshot cfg)
		sh := SecretsHandler{CfgVal: d.CfgVal}
		r.Post("/api/secrets/backend", sh.SetBackendAPIKey)
		r.Post("/api/secrets/telegram", sh.SetTelegramToken)

		// SSE events
		eh := EventsHandler{Hub: d.Hub}
		r.Get("/events", eh.ServeSSE)
	})

	return r
}
