// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/meetmesh/composite/internal/logging"
	"github.com/meetmesh/composite/internal/metrics"
	"github.com/meetmesh/composite/internal/models"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	tokenKey     contextKey = "token"
)

// PrincipalFromContext returns the authenticated caller, or nil when the
// route allowed anonymous access.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	if p, ok := ctx.Value(principalKey).(*models.Principal); ok {
		return p
	}
	return nil
}

// TokenFromContext returns the raw bearer token for downstream
// forwarding, or "" when the request carried none.
func TokenFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey).(string); ok {
		return t
	}
	return ""
}

// Require enforces the full authentication gate. Requests that fail any
// stage are rejected with the stage's status code before the handler or
// any backing-service call runs.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, token, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			reject(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional admits every request. A well-formed bearer token is placed
// in the context for verbatim downstream forwarding without remote
// confirmation; a missing or unextractable header means the request
// proceeds anonymously, since these routes serve open reads either way.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := ExtractToken(header)
		if err != nil {
			logging.Ctx(r.Context()).Debug().
				Err(err).
				Msg("ignoring unextractable authorization header on open route")
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject writes the authentication failure response.
func reject(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *Error
	if !errors.As(err, &authErr) {
		authErr = &Error{Reason: ReasonInvalidToken, cause: err}
	}

	logging.Ctx(r.Context()).Warn().
		Str("reason", string(authErr.Reason)).
		Err(err).
		Msg("request rejected by auth gate")
	metrics.AuthRejections.WithLabelValues(string(authErr.Reason)).Inc()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(authErr.Status())
	if encodeErr := json.NewEncoder(w).Encode(map[string]string{"detail": authErr.Detail()}); encodeErr != nil {
		logging.Ctx(r.Context()).Error().Err(encodeErr).Msg("failed to encode rejection response")
	}
}
