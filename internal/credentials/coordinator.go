// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// Token is the result of an OAuth refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	RefreshOAuthToken(ctx context.Context, refreshToken string) (Token, error)
}

// Options tunes the Coordinator. Zero values take the defaults.
type Options struct {
	RefreshBuffer time.Duration // default 5m
	LeaseTTL      time.Duration // default 10s
	ExpiryPadding time.Duration // default 60s

	// Now is overridable in tests.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.RefreshBuffer <= 0 {
		o.RefreshBuffer = 5 * time.Minute
	}
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = 10 * time.Second
	}
	if o.ExpiryPadding <= 0 {
		o.ExpiryPadding = 60 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Coordinator refreshes OAuth tokens at most once per expiry window across
// all replicas.
type Coordinator struct {
	store     Store
	lease     Lease
	refresher Refresher
	opts      Options
	logger    zerolog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store Store, lease Lease, refresher Refresher, opts Options) *Coordinator {
	opts.applyDefaults()
	return &Coordinator{
		store:     store,
		lease:     lease,
		refresher: refresher,
		opts:      opts,
		logger:    logging.WithComponent("credentials"),
	}
}

// needsRefresh reports whether exp falls inside the refresh buffer.
func (c *Coordinator) needsRefresh(exp time.Time) bool {
	return c.opts.Now().After(exp.Add(-c.opts.RefreshBuffer))
}

// Ensure returns credentials whose access token is not about to expire.
// It never returns an error; on any failure the input is returned unchanged.
func (c *Coordinator) Ensure(ctx context.Context, creds models.CredentialSet) models.CredentialSet {
	if !creds.HasOAuth() {
		return creds
	}

	exp, err := ParseExpiry(creds.ExpiresAt)
	if err != nil {
		metrics.RecordTokenRefresh("malformed_expiry")
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", creds.UserID).Msg("Skipping token refresh")
		return creds
	}
	if !c.needsRefresh(exp) {
		return creds
	}

	release, ok := c.lease.TryAcquire(ctx, LeaseKey(creds.UserID), c.opts.LeaseTTL)
	if !ok {
		metrics.RecordTokenRefresh("lease_busy")
		return creds
	}
	defer release()

	current := creds
	stored, err := c.store.Load(ctx, creds.UserID)
	switch {
	case err == nil && stored.HasOAuth():
		if storedExp, perr := ParseExpiry(stored.ExpiresAt); perr == nil && !c.needsRefresh(storedExp) {
			metrics.RecordTokenRefresh("reused")
			c.logger.Debug().Str("user_id", creds.UserID).Msg("Token already refreshed by another holder")
			return stored
		}
		current = stored
	case err != nil && !errors.Is(err, ErrNotFound):
		c.logger.Warn().Err(err).Str("user_id", creds.UserID).Msg("Failed to reload stored credentials")
	}

	tok, err := c.refresher.RefreshOAuthToken(ctx, current.RefreshToken)
	if err != nil {
		metrics.RecordTokenRefresh("failed")
		logging.Ctx(ctx).Error().Err(err).Str("user_id", creds.UserID).Msg("OAuth token refresh failed")
		return creds
	}

	updated := current
	updated.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	updated.ExpiresAt = FormatExpiry(tok.ExpiresAt.Add(-c.opts.ExpiryPadding))
	updated.UpdatedAt = c.opts.Now().UTC()

	if err := c.store.Save(ctx, updated); err != nil {
		metrics.RecordTokenRefresh("persist_failed")
		logging.Ctx(ctx).Error().Err(err).Str("user_id", creds.UserID).Msg("Refreshed token not persisted")
		return updated
	}

	metrics.RecordTokenRefresh("refreshed")
	c.logger.Info().Str("user_id", creds.UserID).Str("expires_at", updated.ExpiresAt).Msg("OAuth token refreshed")
	return updated
}
