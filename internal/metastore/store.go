// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package metastore caches resolved metadata records by title and by content ID.
//
// Reads never fail: backend errors and corrupt values are logged and reported
// as misses. Records in the historical format are converted on read and
// flagged so the caller can schedule a background rewrite.
package metastore

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/legacy"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// State describes what a lookup found.
type State int

const (
	// Miss means absent, undecodable, unusable, or the backend failed.
	Miss State = iota
	// Hit is a current-format record.
	Hit
	// LegacyHit is a converted historical record that should be rewritten.
	LegacyHit
)

func (s State) String() string {
	switch s {
	case Hit:
		return "hit"
	case LegacyHit:
		return "legacy"
	default:
		return "miss"
	}
}

// Entry is the result of a lookup.
type Entry struct {
	Key    string
	State  State
	Record models.MetadataRecord
}

// Item is one record to write. Language selects the secondary key namespace.
type Item struct {
	Key      string
	Language string
	Record   models.MetadataRecord
}

// Options configures a Store.
type Options struct {
	// DefaultLanguage is omitted from keys. Defaults to "en".
	DefaultLanguage string

	// L1Size enables an in-process LRU of that many records. 0 disables it.
	L1Size int
	L1TTL  time.Duration
}

// Store reads and writes metadata records on a cache.Backend.
type Store struct {
	backend         cache.Backend
	l1              *expirable.LRU[string, models.MetadataRecord]
	defaultLanguage string
	logger          zerolog.Logger
}

// New creates a Store. backend may be nil, in which case every read misses
// and every write is dropped.
func New(backend cache.Backend, opts Options) *Store {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	s := &Store{
		backend:         backend,
		defaultLanguage: opts.DefaultLanguage,
		logger:          logging.WithComponent("metastore"),
	}
	if opts.L1Size > 0 {
		s.l1 = expirable.NewLRU[string, models.MetadataRecord](opts.L1Size, nil, opts.L1TTL)
	}
	return s
}

// DefaultLanguage returns the language omitted from keys.
func (s *Store) DefaultLanguage() string { return s.defaultLanguage }

// Key derives the primary key for title.
func (s *Store) Key(contentType models.ContentType, language, title string) string {
	return Key(contentType, language, s.defaultLanguage, title)
}

// IDKey derives the secondary key for contentID.
func (s *Store) IDKey(contentType models.ContentType, language, contentID string) string {
	return IDKey(contentType, language, s.defaultLanguage, contentID)
}

// Get looks up a single key.
func (s *Store) Get(ctx context.Context, key string) Entry {
	if rec, ok := s.l1Get(key); ok {
		return Entry{Key: key, State: Hit, Record: rec}
	}
	if s.backend == nil {
		metrics.MetadataCacheMisses.Inc()
		return Entry{Key: key}
	}

	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			metrics.MetadataCacheErrors.WithLabelValues("get").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("component", "metastore").Str("key", key).Msg("Metadata get failed, treating as miss")
		}
		metrics.MetadataCacheMisses.Inc()
		return Entry{Key: key}
	}
	return s.decode(ctx, key, data)
}

// MultiGet looks up keys with a single backend round trip. The result has
// one entry per key, in order.
func (s *Store) MultiGet(ctx context.Context, keys []string) []Entry {
	out := make([]Entry, len(keys))
	pending := make([]string, 0, len(keys))
	pendingIdx := make([]int, 0, len(keys))

	for i, key := range keys {
		out[i] = Entry{Key: key}
		if rec, ok := s.l1Get(key); ok {
			out[i].State = Hit
			out[i].Record = rec
			continue
		}
		pending = append(pending, key)
		pendingIdx = append(pendingIdx, i)
	}
	if len(pending) == 0 {
		return out
	}
	if s.backend == nil {
		metrics.MetadataCacheMisses.Add(float64(len(pending)))
		return out
	}

	values, err := s.backend.MGet(ctx, pending)
	if err != nil || len(values) != len(pending) {
		metrics.MetadataCacheErrors.WithLabelValues("mget").Inc()
		metrics.MetadataCacheMisses.Add(float64(len(pending)))
		logging.Ctx(ctx).Warn().Err(err).Str("component", "metastore").Int("keys", len(pending)).Msg("Metadata multi-get failed, treating all as misses")
		return out
	}

	for j, data := range values {
		i := pendingIdx[j]
		if data == nil {
			metrics.MetadataCacheMisses.Inc()
			continue
		}
		out[i] = s.decode(ctx, pending[j], data)
	}
	return out
}

// decode applies the tagged-variant decode to stored bytes.
func (s *Store) decode(ctx context.Context, key string, data []byte) Entry {
	contentType := contentTypeFromKey(key)

	raw, err := legacy.Decode(data)
	if err != nil {
		metrics.MetadataCacheErrors.WithLabelValues("decode").Inc()
		metrics.MetadataCacheMisses.Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("component", "metastore").Str("key", key).Msg("Corrupt metadata record, treating as miss")
		return Entry{Key: key}
	}

	if legacy.IsLegacy(raw) {
		metrics.LegacyRecordsMigrated.Inc()
		metrics.MetadataCacheHits.WithLabelValues("backend").Inc()
		return Entry{Key: key, State: LegacyHit, Record: legacy.Convert(raw, contentType)}
	}

	rec := raw.Canonical(contentType)
	if !rec.Cacheable() {
		metrics.MetadataCacheMisses.Inc()
		s.logger.Debug().Str("key", key).Msg("Stored record lacks poster or name, treating as miss")
		return Entry{Key: key}
	}

	metrics.MetadataCacheHits.WithLabelValues("backend").Inc()
	s.l1Add(key, rec)
	return Entry{Key: key, State: Hit, Record: rec}
}

// Put overwrites the primary key and, when the record has a content ID, the
// secondary ID key. Non-cacheable records are skipped.
func (s *Store) Put(ctx context.Context, item Item) error {
	return s.MultiPut(ctx, []Item{item})
}

// MultiPut writes every cacheable item with one backend call.
func (s *Store) MultiPut(ctx context.Context, items []Item) error {
	entries := make(map[string][]byte, len(items)*2)
	for i := range items {
		item := &items[i]
		if !item.Record.Cacheable() || item.Key == "" {
			continue
		}
		data, err := json.Marshal(item.Record)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", item.Key).Msg("Failed to encode metadata record")
			continue
		}
		entries[item.Key] = data
		s.l1Add(item.Key, item.Record)

		if item.Record.ContentID != "" {
			idKey := s.IDKey(item.Record.ContentType, item.Language, item.Record.ContentID)
			entries[idKey] = data
			s.l1Add(idKey, item.Record)
		}
	}
	if len(entries) == 0 || s.backend == nil {
		return nil
	}

	if err := s.backend.MSet(ctx, entries); err != nil {
		metrics.MetadataCacheErrors.WithLabelValues("mset").Inc()
		return err
	}
	return nil
}

func (s *Store) l1Get(key string) (models.MetadataRecord, bool) {
	if s.l1 == nil {
		return models.MetadataRecord{}, false
	}
	rec, ok := s.l1.Get(key)
	if ok {
		metrics.MetadataCacheHits.WithLabelValues("l1").Inc()
	}
	return rec, ok
}

func (s *Store) l1Add(key string, rec models.MetadataRecord) {
	if s.l1 != nil {
		s.l1.Add(key, rec)
	}
}

// contentTypeFromKey reads the content type prefix of a key.
func contentTypeFromKey(key string) models.ContentType {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return models.ContentType(key[:i])
		}
	}
	return models.ContentType(key)
}
