// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package models

// Availability is a participant's availability window for an event,
// owned by the scheduling service.
type Availability struct {
	ID            int64  `json:"id"`
	EventID       int64  `json:"event_id"`
	ParticipantID int64  `json:"participant_id"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
}

// EnrichedAvailability is an Availability with the participant reference
// resolved. EventURL links to this service's event-enrichment endpoint
// instead of embedding the event, which keeps enrichment depth bounded
// (event -> participants -> their events would otherwise recurse).
type EnrichedAvailability struct {
	ID        int64  `json:"id"`
	EventID   int64  `json:"event_id"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`

	Participant *UserDetail `json:"participant,omitempty"`
	EventURL    string      `json:"event_url,omitempty"`
}
