// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package config defines the service configuration and its koanf-based
// layered loader. There are no package-level mutable settings: main loads
// a *Config once and passes it to each component constructor.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the composite service.
type Config struct {
	Server     ServerConfig    `koanf:"server"`
	Scheduling UpstreamService `koanf:"scheduling"`
	Identity   UpstreamService `koanf:"identity"`
	Email      UpstreamService `koanf:"email"`
	Upstream   UpstreamConfig  `koanf:"upstream"`
	Security   SecurityConfig  `koanf:"security"`
	UserCache  UserCacheConfig `koanf:"user_cache"`
	Logging    LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Timeout bounds both reading the request and writing the response.
	Timeout time.Duration `koanf:"timeout"`

	// PublicBaseURL is the externally reachable base URL of this service.
	// Used to build cross-resource links in enriched availabilities.
	PublicBaseURL string `koanf:"public_base_url"`

	Environment string `koanf:"environment"`
}

// UpstreamService identifies one backing microservice.
type UpstreamService struct {
	URL string `koanf:"url"`
}

// UpstreamConfig holds settings shared by all backing-service clients.
type UpstreamConfig struct {
	// Timeout is the per-call HTTP timeout for backing-service requests.
	// The upstream contract specifies none, so this is a local policy.
	Timeout time.Duration `koanf:"timeout"`

	// FanoutLimit bounds concurrent per-id lookups during enrichment
	// and notification. 1 degrades to sequential fetching.
	FanoutLimit int `koanf:"fanout_limit"`

	// BreakerEnabled toggles the per-service circuit breakers.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// JWTSecret verifies bearer-token signatures locally before the
	// identity service is consulted. Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// UserCacheConfig holds the resolved-user cache settings.
type UserCacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Capacity int           `koanf:"capacity"`
	TTL      time.Duration `koanf:"ttl"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the configuration for completeness and sane bounds.
func (c *Config) Validate() error {
	for name, svc := range map[string]UpstreamService{
		"scheduling": c.Scheduling,
		"identity":   c.Identity,
		"email":      c.Email,
	} {
		if svc.URL == "" {
			return fmt.Errorf("%s.url is required", name)
		}
		u, err := url.Parse(svc.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s.url %q is not a valid absolute URL", name, svc.URL)
		}
	}

	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Upstream.FanoutLimit < 1 {
		return fmt.Errorf("upstream.fanout_limit must be at least 1")
	}

	if c.UserCache.Enabled {
		if c.UserCache.Capacity < 1 {
			return fmt.Errorf("user_cache.capacity must be at least 1")
		}
		if c.UserCache.TTL <= 0 {
			return fmt.Errorf("user_cache.ttl must be positive")
		}
	}

	// Trailing slashes on service URLs cause double-slash request paths.
	c.Scheduling.URL = strings.TrimRight(c.Scheduling.URL, "/")
	c.Identity.URL = strings.TrimRight(c.Identity.URL, "/")
	c.Email.URL = strings.TrimRight(c.Email.URL, "/")
	c.Server.PublicBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/")

	return nil
}
