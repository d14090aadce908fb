// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package api exposes the gateway's HTTP surface: the chi router, the
// route handlers, and response shaping. Successful responses are the
// enriched entity itself; failures are `{"detail": "..."}` with the
// status carrying the classification.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/meetmesh/composite/internal/logging"
)

const contentTypeJSON = "application/json; charset=utf-8"

// writeJSON marshals v as the entire response body.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// writeDetail writes the error shape shared by every failure path.
func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, r, status, map[string]string{"detail": detail})
}

// writeRaw relays an upstream body byte-for-byte.
func writeRaw(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to write relayed response")
	}
}
