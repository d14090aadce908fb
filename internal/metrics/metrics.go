// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package metrics provides Prometheus instrumentation for the composite
// service: gateway endpoint latency and throughput, upstream request
// outcomes, enrichment fan-out results, user cache efficiency, circuit
// breaker state, and notification dispatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composite_http_requests_total",
			Help: "Total number of gateway HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "composite_http_request_duration_seconds",
			Help:    "Gateway HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "composite_http_active_requests",
			Help: "Current number of in-flight gateway requests",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "composite_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
	)

	// Upstream metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composite_upstream_requests_total",
			Help: "Total number of backing-service requests",
		},
		[]string{"service", "outcome"}, // outcome: success, error, rejected
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "composite_upstream_request_duration_seconds",
			Help:    "Backing-service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Authentication metrics
	AuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composite_auth_rejections_total",
			Help: "Total number of requests rejected by the auth gate",
		},
		[]string{"reason"},
	)

	// Enrichment metrics
	EnrichmentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composite_enrichment_lookups_total",
			Help: "Total number of per-id user lookups during enrichment",
		},
		[]string{"outcome"}, // outcome: resolved, dropped, cached
	)

	EnrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "composite_enrichment_duration_seconds",
			Help:    "End-to-end enrichment duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // kind: event, availability
	)

	// User cache metrics
	UserCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "composite_user_cache_hits_total",
			Help: "Total number of user cache hits",
		},
	)

	UserCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "composite_user_cache_misses_total",
			Help: "Total number of user cache misses",
		},
	)

	UserCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "composite_user_cache_entries",
			Help: "Current number of cached user records",
		},
	)

	// Notification metrics
	NotificationEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composite_notification_emails_total",
			Help: "Total number of participant notification emails",
		},
		[]string{"outcome"}, // outcome: sent, lookup_failed, send_failed
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "composite_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composite_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"service", "from", "to"},
	)
)

// RecordHTTPRequest records one completed gateway request.
func RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one backing-service call.
func RecordUpstreamRequest(service, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(service, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}
