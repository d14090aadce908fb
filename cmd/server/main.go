// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package main is the entry point for the Composite gateway.
//
// Composite fronts the MeetMesh scheduling, identity, and email
// microservices with a single aggregated API: it authenticates callers
// against the identity service, enriches scheduling resources with user
// details, and forwards event creation with best-effort participant
// notifications.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SCHEDULING_URL, IDENTITY_URL, EMAIL_URL,
//     JWT_SECRET, ...)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting new connections and waits up to 10 seconds for in-flight
// requests to complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetmesh/composite/internal/api"
	"github.com/meetmesh/composite/internal/auth"
	"github.com/meetmesh/composite/internal/cache"
	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/enrich"
	"github.com/meetmesh/composite/internal/logging"
	"github.com/meetmesh/composite/internal/middleware"
	"github.com/meetmesh/composite/internal/notify"
	"github.com/meetmesh/composite/internal/upstream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("scheduling_url", cfg.Scheduling.URL).
		Str("identity_url", cfg.Identity.URL).
		Str("email_url", cfg.Email.URL).
		Msg("Starting Composite gateway")

	fetcher := upstream.NewFetcher(&cfg.Upstream)
	scheduling := upstream.NewSchedulingClient(fetcher, &cfg.Scheduling)
	identity := upstream.NewIdentityClient(fetcher, &cfg.Identity)
	email := upstream.NewEmailClient(fetcher, &cfg.Email)

	authn, err := auth.NewAuthenticator(&cfg.Security, identity)
	if err != nil {
		return fmt.Errorf("building authenticator: %w", err)
	}

	var userCache *cache.UserCache
	if cfg.UserCache.Enabled {
		userCache = cache.NewUserCache(cfg.UserCache.Capacity, cfg.UserCache.TTL)
	}
	enricher := enrich.NewEnricher(scheduling, identity, userCache, cfg)
	notifier := notify.NewNotifier(enricher, email)

	var limiter *middleware.RateLimiter
	if !cfg.Security.RateLimitDisabled {
		limiter = middleware.NewRateLimiter(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow)
		defer limiter.Stop()
	}

	router := api.NewRouter(cfg, authn, api.NewHandler(enricher, scheduling, notifier), limiter)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	logging.Info().Msg("Gateway stopped gracefully")
	return nil
}
