// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/meetmesh/composite/internal/auth"
	"github.com/meetmesh/composite/internal/logging"
	"github.com/meetmesh/composite/internal/models"
)

// maxCreateBodySize caps the forwarded event-creation body.
const maxCreateBodySize = 1 << 20

// enricher resolves scheduling resources with embedded user details.
type enricher interface {
	EnrichEvent(ctx context.Context, id int64, token string) (*models.EnrichedEvent, error)
	EnrichAvailability(ctx context.Context, id int64, token string) (*models.EnrichedAvailability, error)
}

// eventCreator forwards a creation body to the scheduling service.
type eventCreator interface {
	CreateEvent(ctx context.Context, body []byte, token string) ([]byte, int, error)
}

// notifier emails participants after a confirmed creation.
type notifier interface {
	EventCreated(ctx context.Context, createdBody []byte, token string)
}

// Handler implements the gateway's route handlers.
type Handler struct {
	enricher   enricher
	scheduling eventCreator
	notifier   notifier
	validate   *validator.Validate
}

// NewHandler wires the route handlers. notifier may be nil to disable
// participant emails.
func NewHandler(enricher enricher, scheduling eventCreator, notifier notifier) *Handler {
	return &Handler{
		enricher:   enricher,
		scheduling: scheduling,
		notifier:   notifier,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// GetEvent returns an event with its organizer and participants
// resolved. The route is open; a bearer token, when present, is
// forwarded to the backing services untouched.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	enriched, err := h.enricher.EnrichEvent(r.Context(), id, auth.TokenFromContext(r.Context()))
	if err != nil {
		logging.Ctx(r.Context()).Error().Int64("event_id", id).Err(err).Msg("event enrichment failed")
		writeDetail(w, r, http.StatusInternalServerError, "Failed to fetch event")
		return
	}
	writeJSON(w, r, http.StatusOK, enriched)
}

// GetAvailability returns an availability window with its participant
// resolved and a link to the owning event.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	enriched, err := h.enricher.EnrichAvailability(r.Context(), id, auth.TokenFromContext(r.Context()))
	if err != nil {
		logging.Ctx(r.Context()).Error().Int64("availability_id", id).Err(err).Msg("availability enrichment failed")
		writeDetail(w, r, http.StatusInternalServerError, "Failed to fetch availability")
		return
	}
	writeJSON(w, r, http.StatusOK, enriched)
}

// PostEvent forwards the creation body to the scheduling service
// verbatim and relays its response unchanged, then emails participants
// when the creation was confirmed. The auth gate has already run.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCreateBodySize))
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Request body unreadable or too large")
		return
	}

	var req models.CreateEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Request body must be a JSON event")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Invalid event: title is required and participant ids must be positive")
		return
	}

	token := auth.TokenFromContext(r.Context())
	respBody, status, err := h.scheduling.CreateEvent(r.Context(), body, token)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("event creation forwarding failed")
		writeDetail(w, r, http.StatusInternalServerError, "Scheduling service unavailable")
		return
	}

	// The client sees exactly what the scheduling service said,
	// whatever happens below.
	writeRaw(w, r, status, respBody)

	if h.notifier != nil && (status == http.StatusOK || status == http.StatusCreated) {
		h.notifier.EventCreated(r.Context(), respBody, token)
	}
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} route parameter, rejecting the request itself
// on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, r, http.StatusBadRequest, "Resource id must be a positive integer")
		return 0, false
	}
	return id, true
}
