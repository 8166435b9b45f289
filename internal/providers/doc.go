// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package providers holds the resilience plumbing shared by the upstream
// clients in its subpackages:
//
//   - gemini: LLM recommendations
//   - tmdb: metadata search and details
//   - rpdb: rating poster overlay
//   - trakt: OAuth refresh and watch history
//
// Every HTTP client wraps its calls in a circuit breaker from NewBreaker and
// retries transient failures (transport errors, 429 and 5xx) with Retry.
package providers
