// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package cache

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// entry is a stored value. Exactly one of value or list is meaningful.
type entry struct {
	value     []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Stats tracks backend performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// MemoryBackend is a thread-safe in-process Backend with TTL support.
// Every operation holds a single mutex, so list push+trim and SetNX are atomic.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]entry
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryBackend creates a MemoryBackend. A positive cleanupInterval starts
// a background goroutine that removes expired entries until Close is called.
//
//	backend := cache.NewMemoryBackend(time.Minute)
//	defer backend.Close()
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	m := &MemoryBackend{
		entries: make(map[string]entry),
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.cleanupLoop(cleanupInterval)
	}
	return m
}

// lookup returns a live entry. Must be called with mu held.
func (m *MemoryBackend) lookup(key string, now time.Time) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(now) {
		delete(m.entries, key)
		m.stats.Evictions++
		return entry{}, false
	}
	return e, true
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, time.Now())
	if !ok || e.isList {
		m.stats.Misses++
		return nil, ErrMiss
	}
	m.stats.Hits++
	return clone(e.value), nil
}

// MGet implements Backend.
func (m *MemoryBackend) MGet(_ context.Context, keys []string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	out := make([][]byte, len(keys))
	for i, key := range keys {
		e, ok := m.lookup(key, now)
		if !ok || e.isList {
			m.stats.Misses++
			continue
		}
		m.stats.Hits++
		out[i] = clone(e.value)
	}
	return out, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: clone(value), expiresAt: expiry(time.Now(), ttl)}
	m.stats.TotalKeys = int64(len(m.entries))
	return nil
}

// MSet implements Backend.
func (m *MemoryBackend) MSet(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range entries {
		m.entries[key] = entry{value: clone(value)}
	}
	m.stats.TotalKeys = int64(len(m.entries))
	return nil
}

// ListPushTrim implements Backend.
func (m *MemoryBackend) ListPushTrim(_ context.Context, key string, value []byte, maxLen int) error {
	if maxLen < 1 {
		return fmt.Errorf("cache: list length must be positive, got %d", maxLen)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, time.Now())
	if ok && !e.isList {
		return fmt.Errorf("cache: key %q does not hold a list", key)
	}

	list := make([][]byte, 0, min(len(e.list)+1, maxLen))
	list = append(list, clone(value))
	for _, v := range e.list {
		if len(list) == maxLen {
			break
		}
		list = append(list, v)
	}
	m.entries[key] = entry{list: list, isList: true}
	m.stats.TotalKeys = int64(len(m.entries))
	return nil
}

// ListRange implements Backend with Redis LRANGE index semantics.
func (m *MemoryBackend) ListRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, time.Now())
	if !ok {
		return nil, nil
	}
	if !e.isList {
		return nil, fmt.Errorf("cache: key %q does not hold a list", key)
	}

	n := int64(len(e.list))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}

	out := make([][]byte, 0, stop-start+1)
	for _, v := range e.list[start : stop+1] {
		out = append(out, clone(v))
	}
	return out, nil
}

// SetNX implements Backend.
func (m *MemoryBackend) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if _, ok := m.lookup(key, now); ok {
		return false, nil
	}
	m.entries[key] = entry{value: clone(value), expiresAt: expiry(now, ttl)}
	m.stats.TotalKeys = int64(len(m.entries))
	return true, nil
}

// CompareAndDelete implements Backend.
func (m *MemoryBackend) CompareAndDelete(_ context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, time.Now())
	if !ok || e.isList || !bytes.Equal(e.value, value) {
		return false, nil
	}
	delete(m.entries, key)
	m.stats.TotalKeys = int64(len(m.entries))
	return true, nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		if _, ok := m.entries[key]; ok {
			delete(m.entries, key)
			m.stats.Evictions++
		}
	}
	m.stats.TotalKeys = int64(len(m.entries))
	return nil
}

// Incr implements Backend.
func (m *MemoryBackend) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key, time.Now())
	var n int64
	if ok {
		if e.isList {
			return 0, fmt.Errorf("cache: key %q does not hold an integer", key)
		}
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cache: key %q does not hold an integer: %w", key, err)
		}
		n = parsed
	}
	n++
	m.entries[key] = entry{value: []byte(strconv.FormatInt(n, 10)), expiresAt: e.expiresAt}
	m.stats.TotalKeys = int64(len(m.entries))
	return n, nil
}

// Ping implements Backend.
func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close stops the cleanup goroutine. Safe to call more than once.
func (m *MemoryBackend) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// GetStats returns a snapshot of the backend counters.
func (m *MemoryBackend) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// HitRate returns the hit rate as a percentage.
func (m *MemoryBackend) HitRate() float64 {
	stats := m.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total) * 100
}

func (m *MemoryBackend) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryBackend) cleanup() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			m.stats.Evictions++
		}
	}
	m.stats.TotalKeys = int64(len(m.entries))
	m.stats.LastCleanup = now
}
