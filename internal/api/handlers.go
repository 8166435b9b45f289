// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"time"

	"github.com/tomtom215/marquee/internal/credentials"
	"github.com/tomtom215/marquee/internal/enrich"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/semantic"
)

// Enricher runs the recommendation pipeline.
type Enricher interface {
	Enrich(ctx context.Context, req enrich.Request) (enrich.Result, error)
	Stats(ctx context.Context) (map[models.ContentType]int64, error)
}

// TrendingReader reads trending rings.
type TrendingReader interface {
	ListKey(contentType models.ContentType, language string) string
	Read(ctx context.Context, listKey string) []models.MetadataRecord
}

// TokenEnsurer refreshes a near-expiry OAuth token.
type TokenEnsurer interface {
	Ensure(ctx context.Context, creds models.CredentialSet) models.CredentialSet
}

// HistorySource reads a user's watch history.
type HistorySource interface {
	WatchHistory(ctx context.Context, accessToken string, contentType models.ContentType) ([]models.WatchedItem, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the handler collaborators. History and Semantic may be nil when
// the feature is disabled.
type Deps struct {
	Enricher       Enricher
	Trending       TrendingReader
	Credentials    credentials.Store
	Tokens         TokenEnsurer
	History        HistorySource
	Semantic       semantic.Index
	Backend        Pinger
	RequestTimeout time.Duration
}

// Handler contains dependencies for API handlers
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	return &Handler{deps: deps, startTime: time.Now()}
}
