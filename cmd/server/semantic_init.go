// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"fmt"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/semantic"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
)

// initSemantic builds the semantic query cache and registers its maintenance
// and storage GC services. Returns nil when the cache is disabled.
func initSemantic(cfg *config.Config, stores *Stores, tree *supervisor.SupervisorTree) (*semantic.Cache, error) {
	stores.addGC(tree)

	if !cfg.Semantic.Enabled {
		logging.Info().Msg("Semantic query cache disabled (SEMANTIC_ENABLED=false)")
		return nil, nil
	}

	index, err := semantic.NewBadgerIndex(stores.Semantic, semantic.NewHashEmbedder(cfg.Semantic.Dimensions))
	if err != nil {
		return nil, fmt.Errorf("open semantic index: %w", err)
	}
	c, err := semantic.NewCache(index, cfg.Semantic.Proximity, semantic.CacheOptions{
		ExcludedProviders:     cfg.Semantic.ExcludedProviders,
		StoreCustomKeyResults: cfg.Semantic.StoreCustomKeyResults,
	})
	if err != nil {
		return nil, err
	}

	tree.AddDataService(services.NewIndexMaintenanceService(index, services.IndexMaintenanceConfig{
		MaxItems:      cfg.Semantic.MaxItems,
		CheckInterval: cfg.Semantic.CheckInterval,
	}, logging.WithComponent("semantic")))

	logging.Info().
		Float64("proximity", cfg.Semantic.Proximity).
		Int("max_items", cfg.Semantic.MaxItems).
		Msg("Semantic query cache enabled")
	return c, nil
}
