// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

const (
	vectorPrefix = "vec:"
	lastResetKey = "meta:last_reset"
)

// indexEntry is the persisted form of one fingerprint.
type indexEntry struct {
	Query    string    `json:"query"`
	Vector   []float32 `json:"vector"`
	Payload  []byte    `json:"payload"`
	StoredAt time.Time `json:"storedAt"`
}

// BadgerIndex is an Index persisted in BadgerDB. All entries are loaded into
// memory on open and grouped by namespace; lookups scan one namespace.
type BadgerIndex struct {
	db       *badger.DB
	embedder Embedder

	mu        sync.RWMutex
	entries   map[string]map[string]*indexEntry // namespace -> query -> entry
	count     int
	lastReset time.Time
}

// NewBadgerIndex wraps an open BadgerDB. The caller owns db and closes it.
func NewBadgerIndex(db *badger.DB, embedder Embedder) (*BadgerIndex, error) {
	if db == nil {
		return nil, errors.New("semantic: badger db is required")
	}
	if embedder == nil {
		embedder = NewHashEmbedder(256)
	}
	idx := &BadgerIndex{
		db:       db,
		embedder: embedder,
		entries:  make(map[string]map[string]*indexEntry),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func entryKey(fp Fingerprint) []byte {
	return []byte(vectorPrefix + fp.Namespace + "\x00" + fp.Query)
}

func splitEntryKey(key []byte) (namespace, query string, ok bool) {
	rest := strings.TrimPrefix(string(key), vectorPrefix)
	namespace, query, ok = strings.Cut(rest, "\x00")
	return namespace, query, ok
}

// load populates the in-memory mirror from disk.
func (b *BadgerIndex) load() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.db.View(func(txn *badger.Txn) error {
		if item, err := txn.Get([]byte(lastResetKey)); err == nil {
			_ = item.Value(func(val []byte) error {
				t, perr := time.Parse(time.RFC3339Nano, string(val))
				if perr == nil {
					b.lastReset = t
				}
				return nil
			})
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			ns, query, ok := splitEntryKey(item.KeyCopy(nil))
			if !ok {
				continue
			}
			var entry indexEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				logging.Warn().Err(err).Str("namespace", ns).Msg("Skipping unreadable semantic index entry")
				continue
			}
			entry.Query = query
			b.putLocked(ns, &entry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load semantic index: %w", err)
	}

	// A new index starts its first maintenance period now, and that start
	// must survive restarts.
	if b.lastReset.IsZero() {
		now := time.Now().UTC()
		if err := b.writeLastReset(now); err != nil {
			return err
		}
		b.lastReset = now
	}
	metrics.SemanticIndexItems.Set(float64(b.count))
	return nil
}

func (b *BadgerIndex) putLocked(ns string, entry *indexEntry) {
	bucket, ok := b.entries[ns]
	if !ok {
		bucket = make(map[string]*indexEntry)
		b.entries[ns] = bucket
	}
	if _, exists := bucket[entry.Query]; !exists {
		b.count++
	}
	bucket[entry.Query] = entry
}

// Lookup implements Index.
func (b *BadgerIndex) Lookup(ctx context.Context, fp Fingerprint, threshold float64) ([]byte, float64, bool, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, 0, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	bucket := b.entries[fp.Namespace]
	if len(bucket) == 0 {
		return nil, 0, false, nil
	}

	// Exact query match short-circuits the scan.
	if entry, ok := bucket[fp.Query]; ok {
		return entry.Payload, 1, true, nil
	}

	vec := b.embedder.Embed(fp.Query)
	var best *indexEntry
	bestSim := -1.0
	for _, entry := range bucket {
		if sim := Cosine(vec, entry.Vector); sim > bestSim {
			best, bestSim = entry, sim
		}
	}
	if best == nil || bestSim < threshold {
		return nil, bestSim, false, nil
	}
	return best.Payload, bestSim, true, nil
}

// Store implements Index.
func (b *BadgerIndex) Store(ctx context.Context, fp Fingerprint, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := &indexEntry{
		Query:    fp.Query,
		Vector:   b.embedder.Embed(fp.Query),
		Payload:  payload,
		StoredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal semantic entry: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(fp), data)
	}); err != nil {
		return fmt.Errorf("store semantic entry: %w", err)
	}
	b.putLocked(fp.Namespace, entry)
	metrics.SemanticIndexItems.Set(float64(b.count))
	return nil
}

// Reset implements Index.
func (b *BadgerIndex) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// The database may be shared with other stores; only index keys go.
	if err := b.db.DropPrefix([]byte(vectorPrefix)); err != nil {
		return fmt.Errorf("drop semantic index: %w", err)
	}
	now := time.Now().UTC()
	if err := b.writeLastReset(now); err != nil {
		return err
	}

	b.entries = make(map[string]map[string]*indexEntry)
	b.count = 0
	b.lastReset = now
	metrics.SemanticIndexItems.Set(0)
	return nil
}

func (b *BadgerIndex) writeLastReset(t time.Time) error {
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lastResetKey), []byte(t.Format(time.RFC3339Nano)))
	}); err != nil {
		return fmt.Errorf("record semantic reset: %w", err)
	}
	return nil
}

// Info implements Index.
func (b *BadgerIndex) Info(_ context.Context) (IndexInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return IndexInfo{
		ItemCount:  b.count,
		LastReset:  b.lastReset,
		Dimensions: b.embedder.Dimensions(),
	}, nil
}
