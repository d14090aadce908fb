// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package enrich resolves the foreign user references embedded in
// scheduling-service resources. The primary fetch is load-bearing; the
// per-user lookups are best-effort, so a degraded identity service
// thins the output instead of failing the request.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meetmesh/composite/internal/cache"
	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/logging"
	"github.com/meetmesh/composite/internal/metrics"
	"github.com/meetmesh/composite/internal/models"
)

// eventSource is the scheduling-service surface the enricher consumes.
type eventSource interface {
	Event(ctx context.Context, id int64, token string) (*models.Event, error)
	Availability(ctx context.Context, id int64, token string) (*models.Availability, error)
}

// userSource is the identity-service surface the enricher consumes.
type userSource interface {
	UserInfo(ctx context.Context, id int64, token string) (*models.UserDetail, error)
}

// Enricher merges user details into scheduling resources.
type Enricher struct {
	scheduling eventSource
	identity   userSource

	// userCache is nil when caching is disabled.
	userCache *cache.UserCache

	fanoutLimit   int
	publicBaseURL string
}

// NewEnricher wires an enricher. userCache may be nil.
func NewEnricher(scheduling eventSource, identity userSource, userCache *cache.UserCache, cfg *config.Config) *Enricher {
	limit := cfg.Upstream.FanoutLimit
	if limit < 1 {
		limit = 1
	}
	return &Enricher{
		scheduling:    scheduling,
		identity:      identity,
		userCache:     userCache,
		fanoutLimit:   limit,
		publicBaseURL: cfg.Server.PublicBaseURL,
	}
}

// EnrichEvent fetches an event and resolves its organizer and
// participants. A failed event fetch is fatal; failed user lookups drop
// the corresponding field or list entry. The organizer id never appears
// in the participants list, even when the scheduling service includes it
// in participant_ids.
func (e *Enricher) EnrichEvent(ctx context.Context, id int64, token string) (*models.EnrichedEvent, error) {
	start := time.Now()
	defer func() {
		metrics.EnrichmentDuration.WithLabelValues("event").Observe(time.Since(start).Seconds())
	}()

	event, err := e.scheduling.Event(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("fetching event %d: %w", id, err)
	}

	users := e.ResolveUsers(ctx, event.ReferencedUserIDs(), token)

	out := &models.EnrichedEvent{
		ID:           event.ID,
		Title:        event.Title,
		Description:  event.Description,
		Datetime:     event.Datetime,
		Location:     event.Location,
		Participants: make([]models.UserDetail, 0, len(event.ParticipantIDs)),
	}
	if organizer, ok := users[event.OrganizerID]; ok {
		out.Organizer = &organizer
	}

	added := make(map[int64]struct{}, len(event.ParticipantIDs))
	for _, pid := range event.ParticipantIDs {
		if pid == event.OrganizerID {
			continue
		}
		if _, dup := added[pid]; dup {
			continue
		}
		user, ok := users[pid]
		if !ok {
			continue
		}
		added[pid] = struct{}{}
		out.Participants = append(out.Participants, user)
	}
	return out, nil
}

// EnrichAvailability fetches an availability window and resolves its
// participant. The owning event is linked by URL rather than embedded,
// which keeps enrichment depth bounded.
func (e *Enricher) EnrichAvailability(ctx context.Context, id int64, token string) (*models.EnrichedAvailability, error) {
	start := time.Now()
	defer func() {
		metrics.EnrichmentDuration.WithLabelValues("availability").Observe(time.Since(start).Seconds())
	}()

	availability, err := e.scheduling.Availability(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("fetching availability %d: %w", id, err)
	}

	out := &models.EnrichedAvailability{
		ID:        availability.ID,
		EventID:   availability.EventID,
		StartTime: availability.StartTime,
		EndTime:   availability.EndTime,
	}
	if availability.EventID > 0 && e.publicBaseURL != "" {
		out.EventURL = fmt.Sprintf("%s/getevent/%d/", e.publicBaseURL, availability.EventID)
	}

	if availability.ParticipantID > 0 {
		users := e.ResolveUsers(ctx, []int64{availability.ParticipantID}, token)
		if participant, ok := users[availability.ParticipantID]; ok {
			out.Participant = &participant
		}
	}
	return out, nil
}

// ResolveUsers looks up the given user ids with bounded concurrency and
// returns the subset that resolved. ids must already be deduplicated;
// each id reaches the identity service at most once per call. Lookup
// failures are logged and dropped.
func (e *Enricher) ResolveUsers(ctx context.Context, ids []int64, token string) map[int64]models.UserDetail {
	resolved := make(map[int64]models.UserDetail, len(ids))
	pending := make([]int64, 0, len(ids))
	for _, id := range ids {
		if e.userCache != nil {
			if user, ok := e.userCache.Get(id); ok {
				resolved[id] = user
				metrics.EnrichmentLookups.WithLabelValues("cached").Inc()
				continue
			}
		}
		pending = append(pending, id)
	}
	if len(pending) == 0 {
		return resolved
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanoutLimit)
	for _, id := range pending {
		g.Go(func() error {
			user, err := e.identity.UserInfo(gctx, id, token)
			if err != nil {
				logging.Ctx(ctx).Warn().
					Int64("user_id", id).
					Err(err).
					Msg("user lookup failed, dropping reference")
				metrics.EnrichmentLookups.WithLabelValues("dropped").Inc()
				return nil
			}
			metrics.EnrichmentLookups.WithLabelValues("resolved").Inc()
			if e.userCache != nil {
				e.userCache.Add(*user)
			}
			mu.Lock()
			resolved[id] = *user
			mu.Unlock()
			return nil
		})
	}
	// Lookups report failure by omission, never by error.
	_ = g.Wait()
	return resolved
}
