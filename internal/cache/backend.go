// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package cache provides the shared key-value backend used by the metadata
// store, the trending rings and the OAuth refresh lease.
//
// Two implementations satisfy Backend:
//
//   - RedisBackend: the production backend, shared by every replica
//   - MemoryBackend: an in-process TTL map used when no Redis URL is set and in tests
//
// Callers treat every error as a miss. A backend outage degrades the service
// to "always miss" and never fails a request.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Backend is the set of primitives the catalog pipeline depends on.
type Backend interface {
	// Get returns the value for key or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// MGet returns one slot per key in order; absent keys yield nil.
	MGet(ctx context.Context, keys []string) ([][]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// MSet stores every entry in a single round trip, without expiry.
	MSet(ctx context.Context, entries map[string][]byte) error

	// ListPushTrim pushes value to the head of the list at key and trims the
	// list to maxLen entries as one atomic step.
	ListPushTrim(ctx context.Context, key string, value []byte, maxLen int) error

	// ListRange returns list entries between start and stop inclusive.
	// Negative indexes count from the tail.
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// CompareAndDelete deletes key only if it still holds value.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)

	// Delete removes keys. Absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Incr atomically increments the integer at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Ping reports backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
