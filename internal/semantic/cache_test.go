// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/marquee/internal/models"
)

// fakeIndex returns a fixed similarity for every lookup.
type fakeIndex struct {
	similarity float64
	payload    []byte
	lookupErr  error
	storeErr   error
	stored     map[string][]byte
}

func (f *fakeIndex) Lookup(_ context.Context, _ Fingerprint, threshold float64) ([]byte, float64, bool, error) {
	if f.lookupErr != nil {
		return nil, 0, false, f.lookupErr
	}
	if f.payload == nil || f.similarity < threshold {
		return nil, f.similarity, false, nil
	}
	return f.payload, f.similarity, true, nil
}

func (f *fakeIndex) Store(_ context.Context, fp Fingerprint, payload []byte) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	if f.stored == nil {
		f.stored = make(map[string][]byte)
	}
	f.stored[fp.String()] = payload
	return nil
}

func (f *fakeIndex) Reset(context.Context) error { f.stored = nil; return nil }

func (f *fakeIndex) Info(context.Context) (IndexInfo, error) {
	return IndexInfo{ItemCount: len(f.stored)}, nil
}

func heat() models.MetadataRecord {
	return models.MetadataRecord{
		ContentID:   "tt0113277",
		DisplayName: "Heat",
		ContentType: models.ContentTypeMovie,
		PosterURL:   models.StringPtr("https://img.example/heat.jpg"),
		PosterShape: models.PosterShapePoster,
		ReleaseYear: "1995",
	}
}

func TestNewCacheThreshold(t *testing.T) {
	t.Parallel()

	for _, th := range []float64{0, 0.5, 0.95, 1} {
		if _, err := NewCache(&fakeIndex{}, th, CacheOptions{}); err != nil {
			t.Errorf("threshold %v rejected: %v", th, err)
		}
	}
	for _, th := range []float64{-0.01, 1.5} {
		if _, err := NewCache(&fakeIndex{}, th, CacheOptions{}); !errors.Is(err, ErrThresholdRange) {
			t.Errorf("threshold %v: err = %v, want ErrThresholdRange", th, err)
		}
	}
}

func TestCacheLookupThreshold(t *testing.T) {
	t.Parallel()

	payload := []byte(`[{"id":"tt0113277","displayName":"Heat","type":"movie","poster":"https://img.example/heat.jpg","posterShape":"poster","releaseYear":"1995"}]`)
	fp := NewFingerprint(models.ContentTypeMovie, "en", "en", "crime epics")

	tests := []struct {
		name       string
		similarity float64
		threshold  float64
		hit        bool
	}{
		{"above threshold", 0.97, 0.95, true},
		{"equal to threshold", 0.95, 0.95, true},
		{"below threshold", 0.90, 0.95, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewCache(&fakeIndex{similarity: tt.similarity, payload: payload}, tt.threshold, CacheOptions{})
			if err != nil {
				t.Fatalf("NewCache: %v", err)
			}
			records, ok := c.Lookup(context.Background(), fp)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && (len(records) != 1 || records[0].DisplayName != "Heat") {
				t.Errorf("records = %+v", records)
			}
		})
	}
}

func TestCacheLookupErrorsAreMisses(t *testing.T) {
	t.Parallel()

	fp := NewFingerprint(models.ContentTypeMovie, "", "en", "q")

	c, _ := NewCache(&fakeIndex{lookupErr: errors.New("disk gone")}, 0.5, CacheOptions{})
	if _, ok := c.Lookup(context.Background(), fp); ok {
		t.Error("index error should be a miss")
	}

	c, _ = NewCache(&fakeIndex{similarity: 1, payload: []byte("not json")}, 0.5, CacheOptions{})
	if _, ok := c.Lookup(context.Background(), fp); ok {
		t.Error("corrupt payload should be a miss")
	}
}

func TestCacheStorePolicy(t *testing.T) {
	t.Parallel()

	records := []models.MetadataRecord{heat()}
	fp := NewFingerprint(models.ContentTypeMovie, "", "en", "crime epics")

	tests := []struct {
		name    string
		opts    CacheOptions
		records []models.MetadataRecord
		policy  StorePolicy
		stored  bool
	}{
		{"shared key stores", CacheOptions{}, records, StorePolicy{Provider: "gemini"}, true},
		{"empty result skipped", CacheOptions{}, nil, StorePolicy{}, false},
		{"custom key skipped", CacheOptions{}, records, StorePolicy{CustomKey: true}, false},
		{"custom key allowed by flag", CacheOptions{StoreCustomKeyResults: true}, records, StorePolicy{CustomKey: true}, true},
		{"excluded provider skipped", CacheOptions{ExcludedProviders: []string{" OpenRouter "}}, records, StorePolicy{Provider: "openrouter"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx := &fakeIndex{}
			c, _ := NewCache(idx, 0.95, tt.opts)

			if got := c.Store(context.Background(), fp, tt.records, tt.policy); got != tt.stored {
				t.Errorf("Store() = %v, want %v", got, tt.stored)
			}
			if _, ok := idx.stored[fp.String()]; ok != tt.stored {
				t.Errorf("index written = %v, want %v", ok, tt.stored)
			}
		})
	}
}

func TestCacheStoreIndexError(t *testing.T) {
	t.Parallel()

	c, _ := NewCache(&fakeIndex{storeErr: errors.New("full")}, 0.95, CacheOptions{})
	fp := NewFingerprint(models.ContentTypeMovie, "", "en", "q")
	if c.Store(context.Background(), fp, []models.MetadataRecord{heat()}, StorePolicy{}) {
		t.Error("Store should report false on index error")
	}
}

func TestCacheRoundTripThroughBadger(t *testing.T) {
	ctx := context.Background()
	idx, db := newTestIndex(t, "")
	defer db.Close()

	c, err := NewCache(idx, 0.95, CacheOptions{})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	fp := NewFingerprint(models.ContentTypeMovie, "en", "en", "Crime  Epics")
	if !c.Store(ctx, fp, []models.MetadataRecord{heat()}, StorePolicy{}) {
		t.Fatal("Store returned false")
	}

	again := NewFingerprint(models.ContentTypeMovie, "en", "en", "crime epics ")
	records, ok := c.Lookup(ctx, again)
	if !ok || len(records) != 1 || records[0].ContentID != "tt0113277" {
		t.Errorf("Lookup = %+v, %v", records, ok)
	}
}
