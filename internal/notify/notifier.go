// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package notify emails event participants after a successful creation.
// Every step is best-effort: by the time notification runs the client's
// response is already decided, so failures here are logged and counted
// but never surfaced.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/meetmesh/composite/internal/logging"
	"github.com/meetmesh/composite/internal/metrics"
	"github.com/meetmesh/composite/internal/models"
)

// userResolver performs the tolerant bulk user lookup.
type userResolver interface {
	ResolveUsers(ctx context.Context, ids []int64, token string) map[int64]models.UserDetail
}

// emailSender dispatches a single message.
type emailSender interface {
	Send(ctx context.Context, msg *models.EmailMessage) error
}

// Notifier sends participant-added emails for newly created events.
type Notifier struct {
	resolver userResolver
	email    emailSender
}

func NewNotifier(resolver userResolver, email emailSender) *Notifier {
	return &Notifier{resolver: resolver, email: email}
}

// EventCreated parses the scheduling service's creation response and
// emails each participant whose identity lookup succeeds. createdBody is
// the raw upstream body already returned to the client.
func (n *Notifier) EventCreated(ctx context.Context, createdBody []byte, token string) {
	var event models.Event
	if err := json.Unmarshal(createdBody, &event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("created-event body not parseable, skipping notifications")
		return
	}
	if len(event.ParticipantIDs) == 0 {
		return
	}

	ids := dedupe(event.ParticipantIDs)
	users := n.resolver.ResolveUsers(ctx, ids, token)

	for _, id := range ids {
		user, ok := users[id]
		if !ok {
			metrics.NotificationEmails.WithLabelValues("lookup_failed").Inc()
			continue
		}
		if err := n.email.Send(ctx, buildMessage(&event, &user)); err != nil {
			logging.Ctx(ctx).Warn().
				Int64("user_id", id).
				Err(err).
				Msg("participant notification email failed")
			metrics.NotificationEmails.WithLabelValues("send_failed").Inc()
			continue
		}
		metrics.NotificationEmails.WithLabelValues("sent").Inc()
	}
}

func buildMessage(event *models.Event, user *models.UserDetail) *models.EmailMessage {
	name := user.FirstName
	if name == "" {
		name = user.Username
	}
	return &models.EmailMessage{
		Subject:       fmt.Sprintf("You have been added to %s", event.Title),
		Body:          fmt.Sprintf("Hi %s,\n\nYou have been added to the event %q.\n", name, event.Title),
		RecipientList: []string{user.Email},
		Time:          time.Now().UTC(),
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
