// Package httpapi serves the assist operations as a JSON API for the forum.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdhe/studyhub-assist/pkg/server"
)

// NewRouter creates the chi router with the assist, health and metrics routes.
func NewRouter(svc *server.Service, logger server.Logger) *chi.Mux {
	r := chi.NewRouter()
	h := &handler{svc: svc, logger: logger}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/summaries", h.summarize)       // POST /v1/summaries
		r.Post("/explanations", h.explain)      // POST /v1/explanations
		r.Get("/connection", h.checkConnection) // GET /v1/connection
	})
	return r
}
