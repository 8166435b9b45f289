// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/semantic"
)

// DefaultIndexCeiling is the semantic index size that forces a reset.
const DefaultIndexCeiling = 58000

// MaintainedIndex is the part of semantic.Index the maintenance loop needs.
type MaintainedIndex interface {
	Info(ctx context.Context) (semantic.IndexInfo, error)
	Reset(ctx context.Context) error
}

// IndexMaintenanceConfig configures IndexMaintenanceService.
type IndexMaintenanceConfig struct {
	// MaxItems is the ceiling; more entries than this trigger a reset.
	MaxItems int

	// CheckInterval is how often the index is inspected. Default: 1h.
	CheckInterval time.Duration

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// IndexMaintenanceService keeps the semantic index bounded. It clears the
// index on the first check of every calendar month (UTC) and whenever the
// entry count exceeds the ceiling.
type IndexMaintenanceService struct {
	index  MaintainedIndex
	config IndexMaintenanceConfig
	logger zerolog.Logger
	name   string
}

// NewIndexMaintenanceService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIndexMaintenanceService(index MaintainedIndex, cfg IndexMaintenanceConfig, logger zerolog.Logger) *IndexMaintenanceService {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultIndexCeiling
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &IndexMaintenanceService{
		index:  index,
		config: cfg,
		logger: logger.With().Str("service", "index-maintenance").Logger(),
		name:   "index-maintenance",
	}
}

// Serve implements suture.Service. A failed check is logged and retried on
// the next tick rather than restarting the service.
func (s *IndexMaintenanceService) Serve(ctx context.Context) error {
	s.logger.Info().
		Int("max_items", s.config.MaxItems).
		Dur("check_interval", s.config.CheckInterval).
		Msg("index maintenance starting")

	s.runCheck(ctx)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("index maintenance stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runCheck(ctx)
		}
	}
}

func (s *IndexMaintenanceService) runCheck(ctx context.Context) {
	reason, err := s.Check(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("index maintenance check failed")
		return
	}
	if reason != "" {
		s.logger.Info().Str("reason", reason).Msg("semantic index reset")
	}
}

// Check performs one maintenance pass and returns the reset reason, or ""
// when the index was left alone.
func (s *IndexMaintenanceService) Check(ctx context.Context) (string, error) {
	info, err := s.index.Info(ctx)
	if err != nil {
		return "", fmt.Errorf("read index info: %w", err)
	}

	var reason string
	switch {
	case info.LastReset.Before(monthStart(s.config.Now())):
		reason = "schedule"
	case info.ItemCount > s.config.MaxItems:
		reason = "ceiling"
	default:
		return "", nil
	}

	if err := s.index.Reset(ctx); err != nil {
		return "", fmt.Errorf("reset index (%s): %w", reason, err)
	}
	metrics.SemanticIndexResets.WithLabelValues(reason).Inc()
	return reason, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// String implements fmt.Stringer.
func (s *IndexMaintenanceService) String() string {
	return s.name
}
