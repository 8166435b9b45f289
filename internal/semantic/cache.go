// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package semantic

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// CacheOptions configures the store policy.
type CacheOptions struct {
	// ExcludedProviders are never written to the index.
	ExcludedProviders []string

	// StoreCustomKeyResults allows writes for results produced with a
	// caller-supplied provider key.
	StoreCustomKeyResults bool
}

// StorePolicy describes how a result set was produced.
type StorePolicy struct {
	CustomKey bool
	Provider  string
}

// Cache is the query result cache.
type Cache struct {
	index     Index
	threshold float64
	opts      CacheOptions
	excluded  map[string]struct{}
	logger    zerolog.Logger
}

// NewCache returns ErrThresholdRange when threshold is outside [0, 1].
func NewCache(index Index, threshold float64, opts CacheOptions) (*Cache, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedProviders))
	for _, p := range opts.ExcludedProviders {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			excluded[p] = struct{}{}
		}
	}
	return &Cache{
		index:     index,
		threshold: threshold,
		opts:      opts,
		excluded:  excluded,
		logger:    logging.WithComponent("semantic"),
	}, nil
}

// Threshold returns the configured similarity threshold.
func (c *Cache) Threshold() float64 { return c.threshold }

// Index returns the underlying index.
func (c *Cache) Index() Index { return c.index }

// Lookup returns the cached result set for the closest stored query. Index
// errors and undecodable payloads are logged and reported as misses.
func (c *Cache) Lookup(ctx context.Context, fp Fingerprint) ([]models.MetadataRecord, bool) {
	payload, sim, ok, err := c.index.Lookup(ctx, fp, c.threshold)
	if err != nil {
		metrics.SemanticLookups.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("fingerprint", fp.String()).Msg("Semantic lookup failed")
		return nil, false
	}
	if !ok {
		metrics.SemanticLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var records []models.MetadataRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		metrics.SemanticLookups.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("fingerprint", fp.String()).Msg("Discarding undecodable semantic payload")
		return nil, false
	}

	metrics.SemanticLookups.WithLabelValues("hit").Inc()
	c.logger.Debug().
		Str("fingerprint", fp.String()).
		Float64("similarity", sim).
		Int("records", len(records)).
		Msg("Semantic cache hit")
	return records, true
}

// Store writes records for fp when the policy allows it and reports whether
// a write happened.
func (c *Cache) Store(ctx context.Context, fp Fingerprint, records []models.MetadataRecord, policy StorePolicy) bool {
	switch {
	case len(records) == 0:
		metrics.SemanticStores.WithLabelValues("empty").Inc()
		return false
	case policy.CustomKey && !c.opts.StoreCustomKeyResults:
		metrics.SemanticStores.WithLabelValues("custom_key").Inc()
		return false
	case c.isExcluded(policy.Provider):
		metrics.SemanticStores.WithLabelValues("excluded_provider").Inc()
		return false
	}

	payload, err := json.Marshal(records)
	if err == nil {
		err = c.index.Store(ctx, fp, payload)
	}
	if err != nil {
		metrics.SemanticStores.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("fingerprint", fp.String()).Msg("Semantic store failed")
		return false
	}
	metrics.SemanticStores.WithLabelValues("stored").Inc()
	return true
}

func (c *Cache) isExcluded(provider string) bool {
	_, ok := c.excluded[strings.ToLower(strings.TrimSpace(provider))]
	return ok
}
