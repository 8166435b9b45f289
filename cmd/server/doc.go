// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package main is the entry point for the Marquee server.

Marquee turns a free-text query or a user's watch history into an enriched
catalog list: a language model proposes titles, and every title is resolved
to a full metadata record through a tiered cache before a provider is asked.

# Application Architecture

	RootSupervisor ("marquee")
	├── DataSupervisor ("data-layer")
	│   ├── Badger value log GC
	│   └── Semantic index maintenance (monthly and size-ceiling resets)
	├── WorkersSupervisor ("workers-layer")
	│   └── Metadata refresh consumer (Watermill channel/NATS or asynq)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Cache backend: Redis when REDIS_URL is set, in-process otherwise
 4. Badger: semantic index and credential store
 5. Providers: Gemini, TMDB, RPDB, Trakt
 6. Task queue: channel, NATS JetStream or asynq
 7. Enrichment orchestrator and HTTP handlers
 8. Supervisor tree

# Configuration

Sources, highest priority first:
  - Environment variables (HTTP_PORT, REDIS_URL, GEMINI_API_KEY, ...)
  - Config file (config.yaml, or CONFIG_PATH)
  - Built-in defaults

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains, workers
stop, and in-flight background writes are given the shutdown timeout to
finish before the stores are closed.

# Example Usage

	export GEMINI_API_KEY=...
	export TMDB_API_KEY=...
	export REDIS_URL=redis://localhost:6379/0
	./marquee
*/
package main
