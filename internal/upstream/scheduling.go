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

// SchedulingClient calls the scheduling service, the owner of events and
// availabilities.
type SchedulingClient struct {
	fetcher *Fetcher
	baseURL string
}

// NewSchedulingClient creates a scheduling-service client.
func NewSchedulingClient(fetcher *Fetcher, cfg *config.UpstreamService) *SchedulingClient {
	return &SchedulingClient{
		fetcher: fetcher,
		baseURL: cfg.URL,
	}
}

// Event fetches one event by id. token is optional and forwarded when
// present.
func (c *SchedulingClient) Event(ctx context.Context, id int64, token string) (*models.Event, error) {
	url := fmt.Sprintf("%s/events/%d/", c.baseURL, id)

	body, err := c.fetcher.Do(ctx, ServiceScheduling, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, err
	}

	event := &models.Event{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("failed to decode event %d: %w", id, err)
	}
	return event, nil
}

// Availability fetches one availability by id.
func (c *SchedulingClient) Availability(ctx context.Context, id int64, token string) (*models.Availability, error) {
	url := fmt.Sprintf("%s/availabilities/%d/", c.baseURL, id)

	body, err := c.fetcher.Do(ctx, ServiceScheduling, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, err
	}

	availability := &models.Availability{}
	if err := json.Unmarshal(body, availability); err != nil {
		return nil, fmt.Errorf("failed to decode availability %d: %w", id, err)
	}
	return availability, nil
}

// CreateEvent forwards a creation body to the scheduling service and
// returns the upstream response body and status verbatim, whatever the
// status. Only transport failures and rejected requests are errors.
func (c *SchedulingClient) CreateEvent(ctx context.Context, body []byte, token string) ([]byte, int, error) {
	url := c.baseURL + "/events/"
	return c.fetcher.Forward(ctx, ServiceScheduling, http.MethodPost, url, token, body)
}
