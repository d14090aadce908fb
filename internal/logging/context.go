// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// UnknownCorrelationID is the sentinel used when a request carries no
// correlation id. Downstream calls and log lines still get a value so
// traces never have an empty tag.
const UnknownCorrelationID = "unknown"

// GenerateCorrelationID creates a new unique correlation id.
func GenerateCorrelationID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID returns a new context carrying the given
// correlation id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext retrieves the correlation id from context.
// Returns UnknownCorrelationID if none is present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		return id
	}
	return UnknownCorrelationID
}

// Ctx returns a logger with the context's correlation id attached.
// This is the recommended way to log inside request handling code.
//
//	logging.Ctx(ctx).Info().Msg("event enriched")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := Logger()
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		logger = logger.With().Str("correlation_id", id).Logger()
	}
	return &logger
}

// WithComponent creates a child logger tagged with a component field.
//
//	authLog := logging.WithComponent("auth")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
