// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package trending keeps a bounded most-recent-first list of recommended
// records per content type and language.
package trending

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// DefaultLength is used when a non-positive length is configured.
const DefaultLength = 20

// Ring pushes to and reads from trending lists on a cache.Backend.
type Ring struct {
	backend         cache.Backend
	length          int
	defaultLanguage string
	logger          zerolog.Logger
}

// New creates a Ring holding at most length entries per list.
func New(backend cache.Backend, length int, defaultLanguage string) *Ring {
	if length < 1 {
		length = DefaultLength
	}
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &Ring{
		backend:         backend,
		length:          length,
		defaultLanguage: defaultLanguage,
		logger:          logging.WithComponent("trending"),
	}
}

// Length returns the ring bound.
func (r *Ring) Length() int { return r.length }

// ListKey names the list for a content type and language:
//
//	trendingmovies
//	trendingseries:de
func (r *Ring) ListKey(contentType models.ContentType, language string) string {
	key := "trending" + contentType.Plural()
	if language != "" && language != r.defaultLanguage {
		key += ":" + language
	}
	return key
}

// Push prepends record and trims the list in one backend operation.
func (r *Ring) Push(ctx context.Context, listKey string, record models.MetadataRecord) error {
	if r.backend == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode trending entry: %w", err)
	}
	if err := r.backend.ListPushTrim(ctx, listKey, data, r.length); err != nil {
		metrics.TrendingPushes.WithLabelValues(string(record.ContentType), "error").Inc()
		return fmt.Errorf("push trending entry: %w", err)
	}
	metrics.TrendingPushes.WithLabelValues(string(record.ContentType), "ok").Inc()
	return nil
}

// Read returns the list most recent first. Entries that fail to decode are
// skipped; backend failures yield an empty list.
func (r *Ring) Read(ctx context.Context, listKey string) []models.MetadataRecord {
	out := []models.MetadataRecord{}
	if r.backend == nil {
		return out
	}

	values, err := r.backend.ListRange(ctx, listKey, 0, -1)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "trending").Str("list", listKey).Msg("Trending read failed")
		return out
	}

	for _, data := range values {
		var rec models.MetadataRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			r.logger.Debug().Err(err).Str("list", listKey).Msg("Skipping undecodable trending entry")
			continue
		}
		out = append(out, rec)
	}
	return out
}
