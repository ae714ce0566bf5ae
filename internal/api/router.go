package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maltedev/maps-review-scraper/internal/metrics"
)

// NewRouter mounts the handlers. A nil registry leaves /metrics out.
func NewRouter(h *Handlers, reg *prometheus.Registry, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	if reg != nil {
		r.Handle("/metrics", metrics.Handler(reg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// collection runs for minutes, so only the job endpoints get a deadline
		r.Post("/reviews", h.CollectReviews)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(15 * time.Second))
			r.Get("/jobs", h.ListJobs)
			r.Get("/jobs/{jobID}", h.GetJob)
			r.Get("/stats", h.GetStats)
		})
	})

	return r
}
