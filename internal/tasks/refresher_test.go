// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package tasks

import (
	"context"
	"testing"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/metastore"
	"github.com/tomtom215/marquee/internal/models"
)

type stubResolver struct {
	record models.MetadataRecord
	calls  []models.LookupQuery
}

func (s *stubResolver) Resolve(_ context.Context, q models.LookupQuery) models.MetadataRecord {
	s.calls = append(s.calls, q)
	return s.record
}

func TestRefresherRewritesPrimaryAndIDKeys(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryBackend(0)
	defer backend.Close()
	store := metastore.New(backend, metastore.Options{})

	resolver := &stubResolver{record: models.MetadataRecord{
		ContentID:   "tt0113277",
		DisplayName: "Heat",
		ContentType: models.ContentTypeMovie,
		PosterURL:   models.StringPtr("https://img.example/heat.jpg"),
		PosterShape: models.PosterShapePoster,
		ReleaseYear: "1995",
	}}
	r := NewRefresher(resolver, store)

	key := store.Key(models.ContentTypeMovie, "", "Heat")
	task := NewRefreshTask("Heat", models.ContentTypeMovie, "", key)
	if err := r.Handle(ctx, task); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(resolver.calls) != 1 || resolver.calls[0].MetadataKey != "" {
		t.Errorf("resolver calls = %+v; want one call with the shared key", resolver.calls)
	}
	if e := store.Get(ctx, key); e.State != metastore.Hit || e.Record.DisplayName != "Heat" {
		t.Errorf("primary key entry = %+v", e)
	}
	idKey := store.IDKey(models.ContentTypeMovie, "", "tt0113277")
	if e := store.Get(ctx, idKey); e.State != metastore.Hit {
		t.Errorf("id key entry = %+v", e)
	}

	// Idempotent.
	if err := r.Handle(ctx, task); err != nil {
		t.Errorf("second Handle: %v", err)
	}
}

func TestRefresherSkipsUncacheable(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryBackend(0)
	defer backend.Close()
	store := metastore.New(backend, metastore.Options{})

	r := NewRefresher(&stubResolver{record: models.MetadataRecord{DisplayName: "No Poster"}}, store)
	key := store.Key(models.ContentTypeMovie, "", "No Poster")
	if err := r.Handle(ctx, NewRefreshTask("No Poster", models.ContentTypeMovie, "", key)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if e := store.Get(ctx, key); e.State != metastore.Miss {
		t.Errorf("uncacheable record was written: %+v", e)
	}
}

func TestRefresherIgnoresUnknownKind(t *testing.T) {
	resolver := &stubResolver{}
	r := NewRefresher(resolver, metastore.New(nil, metastore.Options{}))
	if err := r.Handle(context.Background(), Task{Kind: "other", Key: "k"}); err != nil {
		t.Errorf("Handle: %v", err)
	}
	if len(resolver.calls) != 0 {
		t.Error("resolver called for unknown kind")
	}
}
