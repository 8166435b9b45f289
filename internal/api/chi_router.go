// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/marquee/internal/middleware"
)

// NewRouter configures all HTTP routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/catalog/{type}/search", h.CatalogSearch)
		r.Get("/catalog/{type}/history", h.CatalogHistory)
		r.Get("/trending/{type}", h.Trending)
		r.Put("/users/{userID}/credentials", h.PutCredentials)
		r.Get("/stats", h.Stats)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/semantic", h.SemanticInfo)
			r.Post("/semantic/reset", h.SemanticReset)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
