// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/storage"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
)

// Stores holds the process-wide storage handles.
type Stores struct {
	Backend     cache.Backend
	Semantic    *badger.DB // nil when the semantic cache is disabled
	Credentials *badger.DB

	closers []func() error
}

// Close releases every handle in reverse open order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}
}

// initStorage connects the cache backend and opens the Badger databases.
// The semantic index and the credential store share one database when they
// are configured with the same path.
func initStorage(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	if cfg.Redis.Enabled() {
		backend, err := cache.NewRedisBackend(ctx, cfg.Redis.URL, cache.RedisOptions{
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		s.Backend = backend
		s.closers = append(s.closers, backend.Close)
		logging.Info().Msg("Redis cache backend connected")
	} else {
		backend := cache.NewMemoryBackend(cfg.Cache.MemoryCleanupInterval)
		s.Backend = backend
		s.closers = append(s.closers, backend.Close)
		logging.Warn().Msg("REDIS_URL not set, using in-process cache backend (not shared across replicas)")
	}

	credDB, err := storage.OpenBadger(cfg.Credentials.StorePath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("credential store: %w", err)
	}
	s.Credentials = credDB
	s.closers = append(s.closers, credDB.Close)

	if !cfg.Semantic.Enabled {
		return s, nil
	}
	if samePath(cfg.Semantic.IndexPath, cfg.Credentials.StorePath) {
		s.Semantic = credDB
		return s, nil
	}
	semDB, err := storage.OpenBadger(cfg.Semantic.IndexPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("semantic index: %w", err)
	}
	s.Semantic = semDB
	s.closers = append(s.closers, semDB.Close)
	return s, nil
}

// addGC registers value log GC for every distinct on-disk database.
func (s *Stores) addGC(tree *supervisor.SupervisorTree) {
	logger := logging.WithComponent("storage")
	tree.AddDataService(services.NewBadgerGCService(s.Credentials, 0, logger))
	if s.Semantic != nil && s.Semantic != s.Credentials {
		tree.AddDataService(services.NewBadgerGCService(s.Semantic, 0, logger))
	}
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
