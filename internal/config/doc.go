// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package config loads and validates the Marquee service configuration.

Configuration is layered with Koanf v2:

 1. Struct defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/marquee/config.yaml)
 3. Environment variables, mapped explicitly by envTransformFunc

Unmapped environment variables are ignored. Comma-separated values are split
for the slice fields listed in sliceConfigPaths.

# Required Settings

  - GEMINI_API_KEY: shared default key for the recommendation provider
  - TMDB_API_KEY: shared default key for the metadata provider

# Frequently Tuned Settings

  - REDIS_URL: cache backend; the in-process backend is used when empty
  - SEMANTIC_PROXIMITY: similarity threshold in [0.0, 1.0] (default 0.95)
  - SEMANTIC_MAX_ITEMS: index ceiling that forces an early reset (default 58000)
  - TRENDING_LENGTH: trending ring length (default 20)
  - TASKS_BACKEND: channel, nats or asynq

Validation failures are returned from LoadWithKoanf and are fatal at startup.
*/
package config
