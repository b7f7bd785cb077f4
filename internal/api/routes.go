package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seen-ai/talentq"
)

// NewRouter builds the HTTP surface over the registered queue engines.
func NewRouter(mgr *talentq.Manager, shutdownDeadline time.Duration, log talentq.Logger) http.Handler {
	h := NewHandlers(mgr, shutdownDeadline, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/queues", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/cleanup", h.CleanupAll)
		r.Post("/shutdown", h.ShutdownAll)
	})

	r.Route("/{queue}", func(r chi.Router) {
		r.Post("/async", h.CreateJob)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{jobID}/status", h.JobStatus)
		r.Get("/stats", h.Stats)
	})

	return r
}
