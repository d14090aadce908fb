// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package models

import "time"

// UserDetail is a user record fetched from the identity service,
// embedded into enriched resources in place of the raw id reference.
type UserDetail struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

// Principal is the authenticated caller, built once per request from the
// identity service's self-lookup response. Never persisted.
type Principal struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
}

// EmailMessage is the payload accepted by the email service.
type EmailMessage struct {
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	RecipientList []string  `json:"recipient_list"`
	Time          time.Time `json:"time"`
}
