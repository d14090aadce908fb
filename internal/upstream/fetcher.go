// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package upstream provides the HTTP client layer for the backing
// microservices: a shared fetcher with per-service circuit breakers and
// typed clients for the scheduling, identity, and email services.
//
// The fetcher makes exactly one attempt per call - the aggregation
// contract treats every downstream failure as either fatal or tolerable
// at the call site, so retrying here would only stack latency onto
// requests the caller is already prepared to drop.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/logging"
	"github.com/meetmesh/composite/internal/metrics"
)

// CorrelationHeader carries the request's correlation id to every
// backing service.
const CorrelationHeader = "X-Correlation-ID"

// maxErrorBodySize limits how much of an error response body is kept
// for diagnostics.
const maxErrorBodySize = 8 * 1024

// Service names used for breakers, metrics, and error reporting.
const (
	ServiceScheduling = "scheduling"
	ServiceIdentity   = "identity"
	ServiceEmail      = "email"
)

type result struct {
	body   []byte
	status int
}

// Fetcher is the single HTTP transport used for all backing-service
// calls. It attaches the correlation id header on every request and the
// bearer token only when one is supplied. Safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	breakers map[string]*gobreaker.CircuitBreaker[*result]
}

// NewFetcher creates a fetcher with the configured per-call timeout and
// one circuit breaker per backing service. With breakers disabled every
// call goes straight to the transport.
func NewFetcher(cfg *config.UpstreamConfig) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	if cfg.BreakerEnabled {
		f.breakers = make(map[string]*gobreaker.CircuitBreaker[*result], 3)
		for _, name := range []string{ServiceScheduling, ServiceIdentity, ServiceEmail} {
			f.breakers[name] = newBreaker(name)
		}
	}

	return f
}

// newBreaker builds the circuit breaker for one backing service.
// Opens after a 60% failure rate with at least 10 observed requests;
// recovery probe after 30 seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker[*result] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	log := logging.WithComponent("upstream")

	return gobreaker.NewCircuitBreaker[*result](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			log.Info().
				Str("service", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// Do performs one backing-service request and treats any non-2xx
// response as a failure, returning the decoded body on success and an
// *Error otherwise. token is optional; the correlation id is read from
// ctx and always forwarded.
func (f *Fetcher) Do(ctx context.Context, service, method, url, token string, body []byte) ([]byte, error) {
	res, err := f.send(ctx, service, method, url, token, body)
	if err != nil {
		return nil, err
	}
	if res.status < 200 || res.status > 299 {
		return nil, &Error{
			Service: service,
			Status:  res.status,
			Body:    excerpt(res.body),
		}
	}
	return res.body, nil
}

// Forward performs one backing-service request and hands back whatever
// HTTP response came out, body and status untouched. Only transport
// failures and rejected (breaker-open) requests are errors. Used where
// the upstream response is relayed verbatim to the caller.
func (f *Fetcher) Forward(ctx context.Context, service, method, url, token string, body []byte) ([]byte, int, error) {
	res, err := f.send(ctx, service, method, url, token, body)
	if err != nil {
		return nil, 0, err
	}
	return res.body, res.status, nil
}

// send issues a single attempt through the service's circuit breaker.
// 5xx statuses count toward tripping the breaker but are returned as
// ordinary results; 4xx statuses never trip it.
func (f *Fetcher) send(ctx context.Context, service, method, url, token string, body []byte) (*result, error) {
	start := time.Now()

	attempt := func() (*result, error) {
		res, err := f.roundTrip(ctx, service, method, url, token, body)
		if err != nil {
			return nil, err
		}
		if res.status >= 500 {
			return res, &statusError{status: res.status}
		}
		return res, nil
	}

	var res *result
	var err error
	if cb, ok := f.breakers[service]; ok {
		res, err = cb.Execute(attempt)
	} else {
		res, err = attempt()
	}

	duration := time.Since(start)

	// A statusError is breaker bookkeeping, not a failure of send:
	// the caller still receives the 5xx response.
	var se *statusError
	if errors.As(err, &se) && res != nil {
		err = nil
	}

	switch {
	case err == nil:
		metrics.RecordUpstreamRequest(service, "success", duration)
		return res, nil
	case isRejected(err):
		metrics.RecordUpstreamRequest(service, "rejected", duration)
		logging.Ctx(ctx).Warn().Str("service", service).Msg("request rejected by circuit breaker")
		return nil, &Error{Service: service, cause: err}
	default:
		metrics.RecordUpstreamRequest(service, "error", duration)
		return nil, &Error{Service: service, cause: err}
	}
}

// roundTrip builds and executes the HTTP request and reads the body.
func (f *Fetcher) roundTrip(ctx context.Context, service, method, url, token string, body []byte) (*result, error) {
	var reader io.Reader = http.NoBody
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", service, err)
	}

	req.Header.Set(CorrelationHeader, logging.CorrelationIDFromContext(ctx))
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", service, err)
	}

	return &result{body: data, status: resp.StatusCode}, nil
}

func isRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// excerpt truncates a response body for error reporting.
func excerpt(body []byte) string {
	if len(body) > maxErrorBodySize {
		return string(body[:maxErrorBodySize]) + "... (truncated)"
	}
	return string(body)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
