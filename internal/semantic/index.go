// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package semantic caches whole recommendation results keyed by query
// similarity, so that near-identical catalog searches skip the LLM.
//
// The Index port stores opaque payloads against a Fingerprint and answers
// nearest-neighbour lookups within the fingerprint's namespace. Cache wraps an
// Index with the threshold check and the store policy:
//
//	c, err := semantic.NewCache(idx, 0.95, semantic.CacheOptions{})
//	fp := semantic.NewFingerprint(models.ContentTypeMovie, "en", "en", query)
//	if records, ok := c.Lookup(ctx, fp); ok {
//		return records
//	}
package semantic

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrThresholdRange is returned when a similarity threshold is outside [0, 1].
var ErrThresholdRange = errors.New("semantic: similarity threshold must be within [0, 1]")

// IndexInfo describes the state of an Index.
type IndexInfo struct {
	ItemCount  int       `json:"itemCount"`
	LastReset  time.Time `json:"lastReset"`
	Dimensions int       `json:"dimensions"`
}

// Index is a similarity store over fingerprints.
type Index interface {
	// Lookup returns the payload of the most similar entry in fp's namespace
	// when its similarity is at least threshold.
	Lookup(ctx context.Context, fp Fingerprint, threshold float64) (payload []byte, similarity float64, ok bool, err error)

	// Store adds or replaces the entry for fp.
	Store(ctx context.Context, fp Fingerprint, payload []byte) error

	// Reset removes every entry.
	Reset(ctx context.Context) error

	Info(ctx context.Context) (IndexInfo, error)
}

// ValidateThreshold returns ErrThresholdRange unless 0 <= t <= 1.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return ErrThresholdRange
	}
	return nil
}
