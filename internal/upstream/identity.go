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

// IdentityClient calls the identity service for user records.
type IdentityClient struct {
	fetcher *Fetcher
	baseURL string
}

// NewIdentityClient creates an identity-service client.
func NewIdentityClient(fetcher *Fetcher, cfg *config.UpstreamService) *IdentityClient {
	return &IdentityClient{
		fetcher: fetcher,
		baseURL: cfg.URL,
	}
}

// UserInfo fetches one user by id. Used during enrichment; token is
// optional.
func (c *IdentityClient) UserInfo(ctx context.Context, id int64, token string) (*models.UserDetail, error) {
	url := fmt.Sprintf("%s/userinfo/%d/", c.baseURL, id)

	body, err := c.fetcher.Do(ctx, ServiceIdentity, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, err
	}

	user := &models.UserDetail{}
	if err := json.Unmarshal(body, user); err != nil {
		return nil, fmt.Errorf("failed to decode user %d: %w", id, err)
	}
	return user, nil
}

// Self resolves the caller behind a bearer token via the identity
// service's self-lookup endpoint. Used by the authentication gate.
func (c *IdentityClient) Self(ctx context.Context, token string) (*models.UserDetail, error) {
	url := c.baseURL + "/userinfo/"

	body, err := c.fetcher.Do(ctx, ServiceIdentity, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, err
	}

	user := &models.UserDetail{}
	if err := json.Unmarshal(body, user); err != nil {
		return nil, fmt.Errorf("failed to decode self-lookup response: %w", err)
	}
	return user, nil
}
