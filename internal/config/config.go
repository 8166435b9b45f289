// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/marquee/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Redis       RedisConfig       `koanf:"redis"`
	Cache       CacheConfig       `koanf:"cache"`
	Semantic    SemanticConfig    `koanf:"semantic"`
	Trending    TrendingConfig    `koanf:"trending"`
	Enrich      EnrichConfig      `koanf:"enrich"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Gemini      GeminiConfig      `koanf:"gemini"`
	TMDB        TMDBConfig        `koanf:"tmdb"`
	RPDB        RPDBConfig        `koanf:"rpdb"`
	Trakt       TraktConfig       `koanf:"trakt"`
	Tasks       TasksConfig       `koanf:"tasks"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ToLogging converts to the logging package configuration.
func (l LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}

// RedisConfig configures the shared cache backend. An empty URL selects the
// in-process backend.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	PoolSize     int           `koanf:"pool_size"`
}

// Enabled reports whether a Redis URL is configured.
func (r RedisConfig) Enabled() bool { return r.URL != "" }

// CacheConfig holds metadata store settings.
type CacheConfig struct {
	// DefaultLanguage is omitted from cache keys and fingerprints.
	DefaultLanguage string `koanf:"default_language"`

	// L1Size is the in-process LRU capacity in front of the backend. 0 disables it.
	L1Size int           `koanf:"l1_size"`
	L1TTL  time.Duration `koanf:"l1_ttl"`

	// MemoryCleanupInterval applies to the in-process backend only.
	MemoryCleanupInterval time.Duration `koanf:"memory_cleanup_interval"`
}

// SemanticConfig configures the query result cache.
type SemanticConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Proximity         float64       `koanf:"proximity"`
	IndexPath         string        `koanf:"index_path"`
	MaxItems          int           `koanf:"max_items"`
	CheckInterval     time.Duration `koanf:"check_interval"`
	Dimensions        int           `koanf:"dimensions"`
	ExcludedProviders []string      `koanf:"excluded_providers"`

	// StoreCustomKeyResults allows results produced with a caller-supplied
	// provider key to be written to the shared index.
	StoreCustomKeyResults bool `koanf:"store_custom_key_results"`
}

// TrendingConfig configures the trending rings.
type TrendingConfig struct {
	Length int `koanf:"length"`
}

// EnrichConfig tunes the enrichment pipeline.
type EnrichConfig struct {
	MaxConcurrentLookups int           `koanf:"max_concurrent_lookups"`
	LookupTimeout        time.Duration `koanf:"lookup_timeout"`
	RequestTimeout       time.Duration `koanf:"request_timeout"`
	RecommendCount       int           `koanf:"recommend_count"`
}

// CredentialsConfig configures credential storage and OAuth refresh.
type CredentialsConfig struct {
	StorePath     string        `koanf:"store_path"`
	RefreshBuffer time.Duration `koanf:"refresh_buffer"`
	LeaseTTL      time.Duration `koanf:"lease_ttl"`
	ExpiryPadding time.Duration `koanf:"expiry_padding"`
}

// GeminiConfig configures the recommendation provider.
type GeminiConfig struct {
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	MaxRetries        int           `koanf:"max_retries"`
}

// TMDBConfig configures the metadata provider.
type TMDBConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	ImageBaseURL      string        `koanf:"image_base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// RPDBConfig configures the poster overlay.
type RPDBConfig struct {
	BaseURL string `koanf:"base_url"`
}

// TraktConfig configures OAuth refresh and watch history.
type TraktConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	BaseURL      string        `koanf:"base_url"`
	HistoryLimit int           `koanf:"history_limit"`
	Timeout      time.Duration `koanf:"timeout"`
}

// Enabled reports whether Trakt credentials are configured.
func (t TraktConfig) Enabled() bool { return t.ClientID != "" && t.ClientSecret != "" }

// Task queue backends.
const (
	TasksBackendChannel = "channel"
	TasksBackendNATS    = "nats"
	TasksBackendAsynq   = "asynq"
)

// TasksConfig selects and tunes the background task queue.
type TasksConfig struct {
	Backend     string `koanf:"backend"`
	Topic       string `koanf:"topic"`
	NATSURL     string `koanf:"nats_url"`
	Queue       string `koanf:"queue"`
	Concurrency int    `koanf:"concurrency"`
	MaxRetry    int    `koanf:"max_retry"`
}
