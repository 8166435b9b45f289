// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package credentials

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/logging"
)

// Lease is a short-lived mutual-exclusion primitive shared across replicas.
type Lease interface {
	// TryAcquire takes the lease at key without blocking. The returned
	// release func is non-nil only when ok is true.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool)
}

// LeaseKey returns the OAuth refresh lease key for a user.
func LeaseKey(userID string) string {
	return "lease:oauth:" + userID
}

const releaseTimeout = 2 * time.Second

// CacheLease implements Lease on a cache.Backend with SET NX and a random
// token. Release deletes the key only while it still holds that token, so a
// holder whose lease expired cannot remove a newer holder's lease.
type CacheLease struct {
	backend cache.Backend
}

// NewCacheLease creates a CacheLease.
func NewCacheLease(backend cache.Backend) *CacheLease {
	return &CacheLease{backend: backend}
}

// TryAcquire implements Lease. Backend errors are logged and reported as busy.
func (l *CacheLease) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool) {
	token := []byte(uuid.NewString())

	ok, err := l.backend.SetNX(ctx, key, token, ttl)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("lease", key).Msg("Lease acquire failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if _, err := l.backend.CompareAndDelete(rctx, key, token); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("lease", key).Msg("Lease release failed; it will expire")
		}
	}
	return release, true
}
