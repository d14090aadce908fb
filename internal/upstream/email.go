// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/models"
)

// EmailClient calls the email-sending service.
type EmailClient struct {
	fetcher *Fetcher
	baseURL string
}

// NewEmailClient creates an email-service client.
func NewEmailClient(fetcher *Fetcher, cfg *config.UpstreamService) *EmailClient {
	return &EmailClient{
		fetcher: fetcher,
		baseURL: cfg.URL,
	}
}

// Send dispatches one email message.
func (c *EmailClient) Send(ctx context.Context, msg *models.EmailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode email message: %w", err)
	}

	url := c.baseURL + "/send-email"
	if _, err := c.fetcher.Do(ctx, ServiceEmail, http.MethodPost, url, "", body); err != nil {
		return err
	}
	return nil
}
