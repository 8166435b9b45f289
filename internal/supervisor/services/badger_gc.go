// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerGCService periodically reclaims value log space in a BadgerDB
// holding the semantic index and stored credentials.
type BadgerGCService struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   zerolog.Logger
}

// NewBadgerGCService creates the service. A non-positive interval becomes 10m.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerGCService(db *badger.DB, interval time.Duration, logger zerolog.Logger) *BadgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BadgerGCService{
		db:       db,
		interval: interval,
		ratio:    0.5,
		logger:   logger.With().Str("service", "badger-gc").Logger(),
	}
}

// Serve implements suture.Service.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("badger value log GC failed")
			}
		}
	}
}

// RunGC rewrites value log files until nothing more can be reclaimed.
// In-memory databases have no value log and return immediately.
func (s *BadgerGCService) RunGC() error {
	if s.db.Opts().InMemory {
		return nil
	}
	start := time.Now()
	rewrites := 0
	for {
		err := s.db.RunValueLogGC(s.ratio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
		rewrites++
	}
	if rewrites > 0 {
		s.logger.Debug().Int("rewrites", rewrites).Dur("elapsed", time.Since(start)).Msg("badger value log GC complete")
	}
	return nil
}

// String implements fmt.Stringer.
func (s *BadgerGCService) String() string {
	return "badger-gc"
}
