// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Metadata store
	MetadataCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_metadata_cache_hits_total",
			Help: "Metadata store hits by layer",
		},
		[]string{"layer"}, // "l1", "backend"
	)

	MetadataCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_metadata_cache_misses_total",
			Help: "Metadata store misses after all layers",
		},
	)

	MetadataCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_metadata_cache_errors_total",
			Help: "Metadata store backend errors treated as misses",
		},
		[]string{"operation"},
	)

	LegacyRecordsMigrated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_legacy_records_migrated_total",
			Help: "Legacy-format records converted on read",
		},
	)

	// Semantic query cache
	SemanticLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_semantic_lookups_total",
			Help: "Semantic query cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	SemanticStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_semantic_stores_total",
			Help: "Semantic query cache store decisions",
		},
		[]string{"outcome"}, // "stored", "empty", "custom_key", "excluded_provider", "error"
	)

	SemanticIndexItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_semantic_index_items",
			Help: "Number of entries in the semantic index",
		},
	)

	SemanticIndexResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_semantic_index_resets_total",
			Help: "Semantic index resets by reason",
		},
		[]string{"reason"}, // "schedule", "ceiling", "manual"
	)

	// Trending
	TrendingPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_trending_pushes_total",
			Help: "Trending ring pushes by content type",
		},
		[]string{"content_type", "result"},
	)

	// Enrichment
	EnrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_enrichment_duration_seconds",
			Help:    "End-to-end enrichment duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"content_type", "source"}, // source: "semantic", "pipeline", "error"
	)

	EnrichmentRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marquee_enrichment_records",
			Help:    "Records returned per enrichment",
			Buckets: []float64{0, 1, 5, 10, 20, 40},
		},
	)

	ProviderLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_provider_lookups_total",
			Help: "Metadata provider lookups for cache misses",
		},
		[]string{"result"}, // "resolved", "unresolved"
	)

	BackgroundJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_background_jobs",
			Help: "Background persistence jobs in flight",
		},
	)

	// Upstream providers
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_provider_request_duration_seconds",
			Help:    "Upstream provider request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation", "status"},
	)

	// Token refresh
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_token_refresh_total",
			Help: "OAuth token refresh outcomes",
		},
		[]string{"outcome"}, // "refreshed", "reused", "lease_busy", "failed", "persist_failed", "malformed_expiry"
	)

	// Background tasks
	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_tasks_enqueued_total",
			Help: "Background tasks enqueued",
		},
		[]string{"kind", "result"},
	)

	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_tasks_processed_total",
			Help: "Background tasks processed",
		},
		[]string{"kind", "result"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)
)

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordProviderRequest records one upstream call.
func RecordProviderRequest(provider, operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderRequestDuration.WithLabelValues(provider, operation, status).Observe(duration.Seconds())
}

// RecordEnrichment records a finished enrichment.
func RecordEnrichment(contentType, source string, records int, duration time.Duration) {
	EnrichmentDuration.WithLabelValues(contentType, source).Observe(duration.Seconds())
	EnrichmentRecords.Observe(float64(records))
}

// RecordTokenRefresh records a coordinator outcome.
func RecordTokenRefresh(outcome string) {
	TokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordTask records an enqueue or process outcome.
func RecordTask(processed bool, kind string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	if processed {
		TasksProcessed.WithLabelValues(kind, result).Inc()
		return
	}
	TasksEnqueued.WithLabelValues(kind, result).Inc()
}
