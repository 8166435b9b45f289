// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package metastore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/models"
)

// failingBackend returns errBackend from every call.
type failingBackend struct{ cache.Backend }

var errBackend = errors.New("connection refused")

func (failingBackend) Get(context.Context, string) ([]byte, error)      { return nil, errBackend }
func (failingBackend) MGet(context.Context, []string) ([][]byte, error) { return nil, errBackend }
func (failingBackend) MSet(context.Context, map[string][]byte) error    { return errBackend }

func heat() models.MetadataRecord {
	return models.MetadataRecord{
		ContentID:   "tt0113277",
		DisplayName: "Heat",
		ContentType: models.ContentTypeMovie,
		PosterURL:   models.StringPtr("https://img.example/heat.jpg"),
		PosterShape: models.PosterShapePoster,
		ReleaseYear: "1995",
		Genres:      []string{"Crime"},
	}
}

func newTestStore(t *testing.T, l1 int) (*Store, *cache.MemoryBackend) {
	t.Helper()
	backend := cache.NewMemoryBackend(0)
	t.Cleanup(func() { _ = backend.Close() })
	return New(backend, Options{DefaultLanguage: "en", L1Size: l1, L1TTL: time.Minute}), backend
}

func TestKey(t *testing.T) {
	tests := []struct {
		ct    models.ContentType
		lang  string
		title string
		want  string
	}{
		{models.ContentTypeMovie, "en", "  Heat ", "movie:name:heat"},
		{models.ContentTypeMovie, "", "Heat", "movie:name:heat"},
		{models.ContentTypeMovie, "fr", "La Haine", "movie:name:fr:la haine"},
		{models.ContentTypeSeries, "en", "The WIRE", "series:name:the wire"},
	}
	for _, tt := range tests {
		if got := Key(tt.ct, tt.lang, "en", tt.title); got != tt.want {
			t.Errorf("Key(%s,%s,%q) = %q, want %q", tt.ct, tt.lang, tt.title, got, tt.want)
		}
	}
}

func TestIDKey(t *testing.T) {
	if got := IDKey(models.ContentTypeMovie, "en", "en", "tt1"); got != "movie:tt1" {
		t.Errorf("default language IDKey = %q", got)
	}
	if got := IDKey(models.ContentTypeSeries, "de", "en", "tt2"); got != "series:de:tt2" {
		t.Errorf("non-default IDKey = %q", got)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t, 0)
	key := store.Key(models.ContentTypeMovie, "en", "Heat")

	if err := store.Put(ctx, Item{Key: key, Language: "en", Record: heat()}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry := store.Get(ctx, key)
	if entry.State != Hit {
		t.Fatalf("State = %v, want hit", entry.State)
	}
	got := entry.Record
	want := heat()
	if got.ContentID != want.ContentID || got.DisplayName != want.DisplayName ||
		got.Poster() != want.Poster() || got.ReleaseYear != want.ReleaseYear ||
		got.PosterShape != want.PosterShape || len(got.Genres) != 1 {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	if _, err := backend.Get(ctx, "movie:tt0113277"); err != nil {
		t.Errorf("secondary key not written: %v", err)
	}
}

func TestPutNonDefaultLanguageSecondaryKey(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t, 0)

	rec := heat()
	key := store.Key(models.ContentTypeMovie, "fr", "Heat")
	if err := store.Put(ctx, Item{Key: key, Language: "fr", Record: rec}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := backend.Get(ctx, "movie:fr:tt0113277"); err != nil {
		t.Errorf("language-scoped secondary key not written: %v", err)
	}
	if _, err := backend.Get(ctx, "movie:tt0113277"); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("default-language secondary key should not be written, got %v", err)
	}
}

func TestPutSkipsNonCacheable(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t, 0)

	rec := heat()
	rec.PosterURL = nil
	if err := store.Put(ctx, Item{Key: "movie:name:heat", Record: rec}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := backend.Get(ctx, "movie:name:heat"); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("non-cacheable record was written: %v", err)
	}
}

func TestGetLegacyRecord(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t, 16)

	_ = backend.Set(ctx, "movie:name:heat", []byte(`{"showName":"Heat","year":"1995","poster":"p.jpg","id":"tt0113277"}`), 0)

	entry := store.Get(ctx, "movie:name:heat")
	if entry.State != LegacyHit {
		t.Fatalf("State = %v, want legacy", entry.State)
	}
	if entry.Record.DisplayName != "Heat" || entry.Record.ReleaseYear != "1995" ||
		entry.Record.Poster() != "p.jpg" || entry.Record.ContentType != models.ContentTypeMovie {
		t.Errorf("converted record = %+v", entry.Record)
	}

	// Legacy conversions are not promoted to L1; the next read sees the backend again.
	if again := store.Get(ctx, "movie:name:heat"); again.State != LegacyHit {
		t.Errorf("second read State = %v, want legacy", again.State)
	}
}

func TestGetCorruptAndUnusableAreMisses(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t, 0)

	_ = backend.Set(ctx, "movie:name:corrupt", []byte("{not json"), 0)
	_ = backend.Set(ctx, "movie:name:noposter", []byte(`{"displayName":"X","releaseYear":"2000","poster":null}`), 0)

	for _, key := range []string{"movie:name:corrupt", "movie:name:noposter", "movie:name:absent"} {
		if entry := store.Get(ctx, key); entry.State != Miss {
			t.Errorf("Get(%s) State = %v, want miss", key, entry.State)
		}
	}
}

func TestMultiGetPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t, 0)

	rec := heat()
	_ = store.Put(ctx, Item{Key: "movie:name:heat", Record: rec})
	_ = backend.Set(ctx, "movie:name:ronin", []byte(`{"showName":"Ronin","year":"1998","img":"r.jpg"}`), 0)

	keys := []string{"movie:name:absent", "movie:name:heat", "movie:name:ronin", "movie:name:heat"}
	entries := store.MultiGet(ctx, keys)
	if len(entries) != len(keys) {
		t.Fatalf("len = %d, want %d", len(entries), len(keys))
	}

	wantStates := []State{Miss, Hit, LegacyHit, Hit}
	for i, entry := range entries {
		if entry.Key != keys[i] {
			t.Errorf("entries[%d].Key = %q, want %q", i, entry.Key, keys[i])
		}
		if entry.State != wantStates[i] {
			t.Errorf("entries[%d].State = %v, want %v", i, entry.State, wantStates[i])
		}
	}
	if entries[2].Record.DisplayName != "Ronin" {
		t.Errorf("legacy record = %+v", entries[2].Record)
	}
}

func TestMultiGetServesFromL1(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t, 8)

	_ = store.Put(ctx, Item{Key: "movie:name:heat", Record: heat()})
	_ = backend.Delete(ctx, "movie:name:heat")

	entries := store.MultiGet(ctx, []string{"movie:name:heat"})
	if entries[0].State != Hit {
		t.Errorf("expected L1 hit after backend delete, got %v", entries[0].State)
	}
}

func TestBackendFailureDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	store := New(failingBackend{}, Options{})

	if entry := store.Get(ctx, "movie:name:heat"); entry.State != Miss {
		t.Errorf("Get State = %v, want miss", entry.State)
	}
	entries := store.MultiGet(ctx, []string{"a", "b"})
	if len(entries) != 2 || entries[0].State != Miss || entries[1].State != Miss {
		t.Errorf("MultiGet = %+v", entries)
	}
	if err := store.Put(ctx, Item{Key: "movie:name:heat", Record: heat()}); err == nil {
		t.Error("expected Put to surface the backend error")
	}
}

func TestNilBackend(t *testing.T) {
	ctx := context.Background()
	store := New(nil, Options{})

	if err := store.Put(ctx, Item{Key: "movie:name:heat", Record: heat()}); err != nil {
		t.Errorf("Put on nil backend: %v", err)
	}
	if entry := store.Get(ctx, "movie:name:heat"); entry.State != Miss {
		t.Errorf("Get on nil backend State = %v", entry.State)
	}
	if store.DefaultLanguage() != "en" {
		t.Errorf("DefaultLanguage = %q", store.DefaultLanguage())
	}
}
