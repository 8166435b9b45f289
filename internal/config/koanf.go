// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marquee/config.yaml",
	"/etc/marquee/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7000,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Redis: RedisConfig{
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     20,
		},
		Cache: CacheConfig{
			DefaultLanguage:       "en",
			L1Size:                2048,
			L1TTL:                 10 * time.Minute,
			MemoryCleanupInterval: time.Minute,
		},
		Semantic: SemanticConfig{
			Enabled:           true,
			Proximity:         0.95,
			IndexPath:         "/data/semantic",
			MaxItems:          58000,
			CheckInterval:     time.Hour,
			Dimensions:        256,
			ExcludedProviders: []string{},
		},
		Trending: TrendingConfig{
			Length: 20,
		},
		Enrich: EnrichConfig{
			MaxConcurrentLookups: 10,
			LookupTimeout:        15 * time.Second,
			RequestTimeout:       45 * time.Second,
			RecommendCount:       20,
		},
		Credentials: CredentialsConfig{
			StorePath:     "/data/credentials",
			RefreshBuffer: 5 * time.Minute,
			LeaseTTL:      10 * time.Second,
			ExpiryPadding: 60 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:             "gemini-2.0-flash",
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			MaxRetries:        3,
		},
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 40,
		},
		RPDB: RPDBConfig{
			BaseURL: "https://api.ratingposterdb.com",
		},
		Trakt: TraktConfig{
			BaseURL:      "https://api.trakt.tv",
			HistoryLimit: 50,
			Timeout:      10 * time.Second,
		},
		Tasks: TasksConfig{
			Backend:     TasksBackendChannel,
			Topic:       "metadata.refresh",
			NATSURL:     "nats://127.0.0.1:4222",
			Queue:       "metadata",
			Concurrency: 4,
			MaxRetry:    3,
		},
	}
}

// LoadWithKoanf loads configuration with Koanf v2 from defaults, the optional
// config file and environment variables (ENV > File > Defaults), then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when they come from env.
var sliceConfigPaths = []string{
	"semantic.excluded_providers",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Redis
	"redis_url":           "redis.url",
	"redis_dial_timeout":  "redis.dial_timeout",
	"redis_read_timeout":  "redis.read_timeout",
	"redis_write_timeout": "redis.write_timeout",
	"redis_pool_size":     "redis.pool_size",

	// Metadata cache
	"default_language":              "cache.default_language",
	"cache_l1_size":                 "cache.l1_size",
	"cache_l1_ttl":                  "cache.l1_ttl",
	"cache_memory_cleanup_interval": "cache.memory_cleanup_interval",

	// Semantic query cache
	"semantic_enabled":                  "semantic.enabled",
	"semantic_proximity":                "semantic.proximity",
	"semantic_index_path":               "semantic.index_path",
	"semantic_max_items":                "semantic.max_items",
	"semantic_check_interval":           "semantic.check_interval",
	"semantic_dimensions":               "semantic.dimensions",
	"semantic_excluded_providers":       "semantic.excluded_providers",
	"semantic_store_custom_key_results": "semantic.store_custom_key_results",

	// Trending
	"trending_length": "trending.length",

	// Enrichment
	"enrich_max_concurrent_lookups": "enrich.max_concurrent_lookups",
	"enrich_lookup_timeout":         "enrich.lookup_timeout",
	"enrich_request_timeout":        "enrich.request_timeout",
	"enrich_recommend_count":        "enrich.recommend_count",

	// Credentials
	"credentials_store_path":     "credentials.store_path",
	"credentials_refresh_buffer": "credentials.refresh_buffer",
	"credentials_lease_ttl":      "credentials.lease_ttl",
	"credentials_expiry_padding": "credentials.expiry_padding",

	// Providers
	"gemini_api_key":             "gemini.api_key",
	"gemini_model":               "gemini.model",
	"gemini_base_url":            "gemini.base_url",
	"gemini_timeout":             "gemini.timeout",
	"gemini_requests_per_second": "gemini.requests_per_second",
	"gemini_max_retries":         "gemini.max_retries",
	"tmdb_api_key":               "tmdb.api_key",
	"tmdb_base_url":              "tmdb.base_url",
	"tmdb_image_base_url":        "tmdb.image_base_url",
	"tmdb_timeout":               "tmdb.timeout",
	"tmdb_requests_per_second":   "tmdb.requests_per_second",
	"rpdb_base_url":              "rpdb.base_url",
	"trakt_client_id":            "trakt.client_id",
	"trakt_client_secret":        "trakt.client_secret",
	"trakt_base_url":             "trakt.base_url",
	"trakt_history_limit":        "trakt.history_limit",
	"trakt_timeout":              "trakt.timeout",

	// Tasks
	"tasks_backend":     "tasks.backend",
	"tasks_topic":       "tasks.topic",
	"tasks_nats_url":    "tasks.nats_url",
	"tasks_queue":       "tasks.queue",
	"tasks_concurrency": "tasks.concurrency",
	"tasks_max_retry":   "tasks.max_retry",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped.
//
//	SEMANTIC_PROXIMITY -> semantic.proximity
//	REDIS_URL          -> redis.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
