package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-editor/internal/editor"
)

type RouterConfig struct {
	Sessions *editor.Sessions
	Postgres Pinger
	Redis    Pinger
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	s := cfg.Sessions
	r.Route("/editor", func(r chi.Router) {
		r.Get("/config", configHandler(s.Config()))
		r.Post("/sessions", createSessionHandler(s))

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", withForm(s, getSessionHandler))
			r.Delete("/", deleteSessionHandler(s))

			r.Patch("/details", withForm(s, updateDetailsHandler))
			r.Patch("/errors", withForm(s, updateErrorsHandler))
			r.Put("/fields/{field}", withForm(s, selectFieldHandler))

			r.Post("/providers", withForm(s, addProviderHandler))
			r.Delete("/providers/{providerID}", withForm(s, removeProviderHandler))

			r.Patch("/recurrence", withForm(s, updateRecurrenceHandler))
			r.Post("/recurrence/weekdays/{day}", withForm(s, toggleWeekDayHandler))
			r.Get("/recurrence/preview", withForm(s, previewHandler))

			r.Get("/search/{kind}", withForm(s, searchHandler))
			r.Post("/save", withForm(s, saveHandler))
		})
	})

	return r
}
