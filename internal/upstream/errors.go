// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package upstream

import (
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Error describes a failed backing-service call. Status is the HTTP
// status of a non-2xx response, or 0 for transport failures and rejected
// (breaker-open) requests.
type Error struct {
	Service string
	Status  int
	Body    string // truncated response body excerpt, for diagnostics
	cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Service, e.Status, e.Body)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NotFound reports whether the call failed with HTTP 404.
func (e *Error) NotFound() bool {
	return e.Status == 404
}

// Unavailable reports whether the failure was transport-level or a
// rejected request, rather than an HTTP error response.
func (e *Error) Unavailable() bool {
	return e.Status == 0 || e.Status >= 500
}

// IsUnavailable reports whether err represents an unreachable backing
// service (transport failure, open breaker, or 5xx).
func IsUnavailable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Unavailable()
	}
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// statusError carries a server-error status through the circuit breaker
// so 5xx responses count toward tripping it. It never escapes the
// fetcher.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.status)
}
