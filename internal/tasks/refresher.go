// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package tasks

import (
	"context"
	"fmt"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metastore"
	"github.com/tomtom215/marquee/internal/models"
)

// Resolver resolves a title to a metadata record. It never errors; an
// unresolved title yields a record that is not cacheable.
type Resolver interface {
	Resolve(ctx context.Context, q models.LookupQuery) models.MetadataRecord
}

// Refresher handles metadata.refresh tasks.
type Refresher struct {
	resolver Resolver
	store    *metastore.Store
}

// NewRefresher creates a Refresher. Lookups use the shared provider keys.
func NewRefresher(resolver Resolver, store *metastore.Store) *Refresher {
	return &Refresher{resolver: resolver, store: store}
}

// Handle implements Handler. Running it twice for the same key is harmless.
func (r *Refresher) Handle(ctx context.Context, task Task) error {
	if task.Kind != KindMetadataRefresh {
		logging.Warn().Str("kind", task.Kind).Str("task_id", task.ID).Msg("Ignoring unknown task kind")
		return nil
	}

	rec := r.resolver.Resolve(ctx, models.LookupQuery{
		Title:       task.Title,
		ContentType: task.ContentType,
		Language:    task.Language,
	})
	if !rec.Cacheable() {
		logging.Debug().Str("key", task.Key).Str("title", task.Title).Msg("Refresh produced no cacheable record")
		return nil
	}

	if err := r.store.Put(ctx, metastore.Item{Key: task.Key, Language: task.Language, Record: rec}); err != nil {
		return fmt.Errorf("rewrite %s: %w", task.Key, err)
	}
	logging.Debug().Str("key", task.Key).Str("id", rec.ContentID).Msg("Legacy record rewritten")
	return nil
}
