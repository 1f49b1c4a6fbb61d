// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is the health-check dependency, satisfied by the store client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes builds the service router with the canonical middleware stack.
func (s *Server) Routes(health Pinger) *chi.Mux {
	r := chi.NewRouter()

	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID (correlation early)
	r.Use(RequestID)
	// 3. Logging (wraps handlers, captures full latency)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "state store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Reads stay unthrottled; the status view is polled.
		r.Get("/sessions/{tenant}/{reference}", s.handleGetSession)
		r.Get("/pipeline/{tenant}/{reference}", s.handlePipeline)

		r.Group(func(r chi.Router) {
			if s.cfg.RateLimitEnabled {
				r.Use(RateLimit(s.cfg.RateLimitRPM))
			}
			r.Post("/sessions", s.handleInitSession)
			r.Post("/sessions/{tenant}/{reference}/slots/{index}/complete", s.handleIncrement)
			r.Post("/events", s.handleAppendEvent)
		})
	})

	return r
}
