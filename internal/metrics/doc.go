// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package metrics registers the Prometheus collectors for Marquee.
//
// Collectors are package-level promauto variables so any package can record
// without wiring a registry. The Record* helpers keep label values consistent.
// Exposition happens at /metrics through promhttp.
package metrics
