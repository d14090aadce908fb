// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meetmesh/composite/internal/auth"
	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/middleware"
)

// NewRouter assembles the gateway's routes. Reads are open (a bearer
// token is forwarded when present); the mutation route sits behind the
// full authentication gate. limiter may be nil when rate limiting is
// disabled.
func NewRouter(cfg *config.Config, authn *auth.Authenticator, h *Handler, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.CorrelationID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if limiter != nil {
		r.Use(limiter.Handler)
	}
	r.Use(middleware.PrometheusMetrics)

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authn.Optional)
		r.Get("/getevent/{id}/", h.GetEvent)
		r.Get("/getavailability/{id}/", h.GetAvailability)
	})

	r.Group(func(r chi.Router) {
		r.Use(authn.Require)
		r.Post("/postevent/", h.PostEvent)
	})

	return r
}
