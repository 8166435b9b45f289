// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryBackendGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	stats := m.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
	if rate := m.HitRate(); rate != 50 {
		t.Errorf("HitRate = %v, want 50", rate)
	}
}

func TestMemoryBackendExpiration(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	_ = m.Set(ctx, "short", []byte("v"), 50*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	if _, err := m.Get(ctx, "short"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected expired key to miss, got %v", err)
	}
	if m.GetStats().Evictions != 1 {
		t.Errorf("expected one eviction, got %d", m.GetStats().Evictions)
	}
}

func TestMemoryBackendMultiOps(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	if err := m.MSet(ctx, map[string][]byte{"a": []byte("1"), "c": []byte("3")}); err != nil {
		t.Fatalf("MSet: %v", err)
	}

	vals, err := m.MGet(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("MGet returned %d slots, want 3", len(vals))
	}
	if string(vals[0]) != "1" || vals[1] != nil || string(vals[2]) != "3" {
		t.Errorf("MGet = %q", vals)
	}
}

func TestMemoryBackendListPushTrim(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	for i := 0; i < 5; i++ {
		if err := m.ListPushTrim(ctx, "ring", []byte(fmt.Sprint(i)), 3); err != nil {
			t.Fatalf("ListPushTrim: %v", err)
		}
	}

	vals, err := m.ListRange(ctx, "ring", 0, -1)
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	want := []string{"4", "3", "2"}
	if len(vals) != len(want) {
		t.Fatalf("len = %d, want %d", len(vals), len(want))
	}
	for i := range want {
		if string(vals[i]) != want[i] {
			t.Errorf("vals[%d] = %q, want %q", i, vals[i], want[i])
		}
	}

	head, _ := m.ListRange(ctx, "ring", 0, 0)
	if len(head) != 1 || string(head[0]) != "4" {
		t.Errorf("head = %q", head)
	}
	tail, _ := m.ListRange(ctx, "ring", -1, -1)
	if len(tail) != 1 || string(tail[0]) != "2" {
		t.Errorf("tail = %q", tail)
	}
	if empty, _ := m.ListRange(ctx, "absent", 0, -1); len(empty) != 0 {
		t.Errorf("absent list = %q", empty)
	}
	if err := m.ListPushTrim(ctx, "ring", []byte("x"), 0); err == nil {
		t.Error("expected error for non-positive length")
	}
}

func TestMemoryBackendListBoundUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.ListPushTrim(ctx, "ring", []byte(fmt.Sprint(i)), 20)
		}(i)
	}
	wg.Wait()

	vals, _ := m.ListRange(ctx, "ring", 0, -1)
	if len(vals) != 20 {
		t.Errorf("ring length = %d, want 20", len(vals))
	}
}

func TestMemoryBackendSetNXAndCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	ok, err := m.SetNX(ctx, "lease", []byte("a"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	if ok, _ := m.SetNX(ctx, "lease", []byte("b"), time.Minute); ok {
		t.Fatal("second SetNX should fail while held")
	}

	if deleted, _ := m.CompareAndDelete(ctx, "lease", []byte("b")); deleted {
		t.Fatal("CompareAndDelete with wrong value should not delete")
	}
	if deleted, _ := m.CompareAndDelete(ctx, "lease", []byte("a")); !deleted {
		t.Fatal("CompareAndDelete with owner value should delete")
	}
	if ok, _ := m.SetNX(ctx, "lease", []byte("b"), 30*time.Millisecond); !ok {
		t.Fatal("SetNX should succeed after release")
	}

	time.Sleep(50 * time.Millisecond)
	if ok, _ := m.SetNX(ctx, "lease", []byte("c"), time.Minute); !ok {
		t.Fatal("SetNX should succeed after expiry")
	}
}

func TestMemoryBackendIncrAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	for want := int64(1); want <= 3; want++ {
		got, err := m.Incr(ctx, "counter")
		if err != nil || got != want {
			t.Fatalf("Incr = %d, %v, want %d", got, err, want)
		}
	}

	_ = m.Set(ctx, "text", []byte("abc"), 0)
	if _, err := m.Incr(ctx, "text"); err == nil {
		t.Error("expected error incrementing a non-integer")
	}

	if err := m.Delete(ctx, "counter", "text", "absent"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "counter"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected counter deleted, got %v", err)
	}
}

func TestMemoryBackendCleanup(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(20 * time.Millisecond)
	defer m.Close()

	_ = m.Set(ctx, "a", []byte("1"), 10*time.Millisecond)
	_ = m.Set(ctx, "b", []byte("2"), 0)
	time.Sleep(100 * time.Millisecond)

	stats := m.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys = %d, want 1", stats.TotalKeys)
	}
	if stats.LastCleanup.IsZero() {
		t.Error("expected LastCleanup to be set")
	}
}

func TestMemoryBackendReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(0)
	defer m.Close()

	buf := []byte("value")
	_ = m.Set(ctx, "k", buf, 0)
	buf[0] = 'X'

	got, _ := m.Get(ctx, "k")
	if string(got) != "value" {
		t.Errorf("stored value mutated through caller slice: %q", got)
	}
}
