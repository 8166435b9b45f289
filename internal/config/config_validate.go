// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/marquee/internal/logging"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateRedis,
		c.validateSemantic,
		c.validateTrending,
		c.validateEnrich,
		c.validateCredentials,
		c.validateProviders,
		c.validateTasks,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func (c *Config) validateRedis() error {
	if !c.Redis.Enabled() {
		return nil
	}
	u, err := url.Parse(c.Redis.URL)
	if err != nil {
		return fmt.Errorf("REDIS_URL is invalid: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return fmt.Errorf("REDIS_URL must use redis:// or rediss://, got %q", u.Scheme)
	}
	return nil
}

func (c *Config) validateSemantic() error {
	// Checked even when the cache is disabled.
	if c.Semantic.Proximity < 0 || c.Semantic.Proximity > 1 {
		return fmt.Errorf("SEMANTIC_PROXIMITY must be between 0.0 and 1.0, got %v", c.Semantic.Proximity)
	}
	if !c.Semantic.Enabled {
		return nil
	}
	if c.Semantic.MaxItems < 1 {
		return fmt.Errorf("SEMANTIC_MAX_ITEMS must be positive, got %d", c.Semantic.MaxItems)
	}
	if c.Semantic.CheckInterval <= 0 {
		return fmt.Errorf("SEMANTIC_CHECK_INTERVAL must be positive")
	}
	if c.Semantic.Dimensions < 16 {
		return fmt.Errorf("SEMANTIC_DIMENSIONS must be at least 16, got %d", c.Semantic.Dimensions)
	}
	return nil
}

func (c *Config) validateTrending() error {
	if c.Trending.Length < 1 {
		return fmt.Errorf("TRENDING_LENGTH must be positive, got %d", c.Trending.Length)
	}
	return nil
}

func (c *Config) validateEnrich() error {
	if c.Enrich.MaxConcurrentLookups < 1 {
		return fmt.Errorf("ENRICH_MAX_CONCURRENT_LOOKUPS must be positive, got %d", c.Enrich.MaxConcurrentLookups)
	}
	if c.Enrich.LookupTimeout <= 0 {
		return fmt.Errorf("ENRICH_LOOKUP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateCredentials() error {
	if c.Credentials.LeaseTTL <= 0 {
		return fmt.Errorf("CREDENTIALS_LEASE_TTL must be positive")
	}
	if c.Credentials.RefreshBuffer <= 0 {
		return fmt.Errorf("CREDENTIALS_REFRESH_BUFFER must be positive")
	}
	if c.Credentials.ExpiryPadding < 0 {
		return fmt.Errorf("CREDENTIALS_EXPIRY_PADDING must not be negative")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if (c.Trakt.ClientID == "") != (c.Trakt.ClientSecret == "") {
		return fmt.Errorf("TRAKT_CLIENT_ID and TRAKT_CLIENT_SECRET must be set together")
	}
	return nil
}

func (c *Config) validateTasks() error {
	switch c.Tasks.Backend {
	case TasksBackendChannel:
	case TasksBackendNATS:
		if c.Tasks.NATSURL == "" {
			return fmt.Errorf("TASKS_NATS_URL is required when TASKS_BACKEND=nats")
		}
	case TasksBackendAsynq:
		if !c.Redis.Enabled() {
			return fmt.Errorf("REDIS_URL is required when TASKS_BACKEND=asynq")
		}
	default:
		return fmt.Errorf("TASKS_BACKEND must be channel, nats or asynq, got %q", c.Tasks.Backend)
	}
	if c.Tasks.Topic == "" {
		return fmt.Errorf("TASKS_TOPIC is required")
	}
	return nil
}
