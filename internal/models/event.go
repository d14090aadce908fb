// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package models defines the records exchanged with the backing
// microservices and the denormalized shapes returned to API clients.
package models

// Event is the primary resource owned by the scheduling service.
// The canonical organizer reference key is organizer_id; the legacy
// organizer_profile key some scheduling revisions emitted is not accepted.
type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Datetime    string `json:"datetime,omitempty"`
	Location    string `json:"location,omitempty"`

	OrganizerID    int64   `json:"organizer_id"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

// ReferencedUserIDs returns the set of user ids referenced by the event,
// deduplicated, in first-seen order (organizer first).
func (e *Event) ReferencedUserIDs() []int64 {
	seen := make(map[int64]struct{}, len(e.ParticipantIDs)+1)
	ids := make([]int64, 0, len(e.ParticipantIDs)+1)

	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	add(e.OrganizerID)
	for _, id := range e.ParticipantIDs {
		add(id)
	}
	return ids
}

// EnrichedEvent is an Event with user references resolved. Unresolved
// references are absent rather than null-with-error: the organizer field
// is omitted and the participants list filtered.
type EnrichedEvent struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Datetime    string `json:"datetime,omitempty"`
	Location    string `json:"location,omitempty"`

	Organizer    *UserDetail  `json:"organizer,omitempty"`
	Participants []UserDetail `json:"participants"`
}

// CreateEventRequest is the client-supplied body for event creation.
// The body is forwarded to the scheduling service verbatim; validation
// here only rejects requests the scheduling service could never accept.
type CreateEventRequest struct {
	Title          string  `json:"title" validate:"required"`
	Description    string  `json:"description,omitempty"`
	Datetime       string  `json:"datetime,omitempty"`
	Location       string  `json:"location,omitempty"`
	ParticipantIDs []int64 `json:"participant_ids,omitempty" validate:"dive,gt=0"`
}
