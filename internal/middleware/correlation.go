// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package middleware

import (
	"net/http"

	"github.com/meetmesh/composite/internal/logging"
	"github.com/meetmesh/composite/internal/upstream"
)

// CorrelationID adopts the inbound X-Correlation-ID header or generates
// a fresh id, echoes it on the response, and threads it through the
// request context so every log line and backing-service call carries it.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(upstream.CorrelationHeader)
		if id == "" {
			id = logging.GenerateCorrelationID()
		}

		w.Header().Set(upstream.CorrelationHeader, id)
		ctx := logging.ContextWithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
