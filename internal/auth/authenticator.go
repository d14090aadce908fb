// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package auth implements the remote-token authentication gate. A
// request's bearer token is checked in three stages: header extraction,
// local signature and expiry validation, and remote confirmation against
// the identity service's self-lookup endpoint. Only after all three does
// a Principal reach the request context.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/models"
	"github.com/meetmesh/composite/internal/upstream"
)

// Reason classifies why the gate rejected a request.
type Reason string

const (
	// ReasonMalformedHeader: the Authorization header was missing or not
	// of the form "Bearer <token>".
	ReasonMalformedHeader Reason = "malformed_header"

	// ReasonInvalidToken: the token failed local signature or expiry
	// validation.
	ReasonInvalidToken Reason = "invalid_token"

	// ReasonUserNotFound: the identity service did not recognize the
	// token's bearer.
	ReasonUserNotFound Reason = "user_not_found"

	// ReasonIdentityUnavailable: the identity service could not be
	// reached to confirm the token.
	ReasonIdentityUnavailable Reason = "identity_service_unavailable"
)

// Error is a terminal authentication failure.
type Error struct {
	Reason Reason
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Status maps the rejection reason to an HTTP status code.
func (e *Error) Status() int {
	switch e.Reason {
	case ReasonMalformedHeader, ReasonInvalidToken:
		return 401
	case ReasonUserNotFound:
		return 403
	case ReasonIdentityUnavailable:
		return 503
	default:
		return 401
	}
}

// Detail is the client-facing message for the rejection.
func (e *Error) Detail() string {
	switch e.Reason {
	case ReasonMalformedHeader:
		return "Authorization header must be 'Bearer <token>'"
	case ReasonInvalidToken:
		return "Invalid or expired token"
	case ReasonUserNotFound:
		return "User not found"
	case ReasonIdentityUnavailable:
		return "Identity service unavailable"
	default:
		return "Authentication failed"
	}
}

// identityResolver is the slice of the identity client the gate needs.
type identityResolver interface {
	Self(ctx context.Context, token string) (*models.UserDetail, error)
}

// Authenticator validates bearer tokens locally and confirms them with
// the identity service.
type Authenticator struct {
	secret   []byte
	identity identityResolver
}

// NewAuthenticator creates the gate from the configured JWT secret and
// an identity client.
func NewAuthenticator(cfg *config.SecurityConfig, identity identityResolver) (*Authenticator, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required but was empty")
	}
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		identity: identity,
	}, nil
}

// ExtractToken pulls the raw bearer token out of an Authorization
// header value. The header must be exactly two whitespace-separated
// parts with a case-insensitive "bearer" scheme.
func ExtractToken(header string) (string, error) {
	if header == "" {
		return "", &Error{Reason: ReasonMalformedHeader, cause: fmt.Errorf("authorization header missing")}
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", &Error{Reason: ReasonMalformedHeader, cause: fmt.Errorf("header is not 'Bearer <token>'")}
	}

	return parts[1], nil
}

// Authenticate runs the full gate for one request: extraction, local
// validation, remote confirmation. On success it returns the Principal
// and the raw token for downstream forwarding.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*models.Principal, string, error) {
	token, err := ExtractToken(header)
	if err != nil {
		return nil, "", err
	}

	if err := a.validateLocal(token); err != nil {
		return nil, "", &Error{Reason: ReasonInvalidToken, cause: err}
	}

	user, err := a.identity.Self(ctx, token)
	if err != nil {
		if upstream.IsUnavailable(err) {
			return nil, "", &Error{Reason: ReasonIdentityUnavailable, cause: err}
		}
		return nil, "", &Error{Reason: ReasonUserNotFound, cause: err}
	}

	principal := &models.Principal{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Authenticated: true,
	}
	return principal, token, nil
}

// validateLocal checks token structure, HMAC signature, and time claims
// without any network traffic.
func (a *Authenticator) validateLocal(token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid token claims")
	}
	return nil
}
