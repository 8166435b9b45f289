// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/marquee/internal/api"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/credentials"
	"github.com/tomtom215/marquee/internal/enrich"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metastore"
	"github.com/tomtom215/marquee/internal/providers/gemini"
	"github.com/tomtom215/marquee/internal/providers/rpdb"
	"github.com/tomtom215/marquee/internal/providers/tmdb"
	"github.com/tomtom215/marquee/internal/providers/trakt"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
	"github.com/tomtom215/marquee/internal/tasks"
	"github.com/tomtom215/marquee/internal/trending"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging.ToLogging())
	logging.Info().
		Bool("redis", cfg.Redis.Enabled()).
		Bool("semantic_cache", cfg.Semantic.Enabled).
		Bool("trakt", cfg.Trakt.Enabled()).
		Str("tasks_backend", cfg.Tasks.Backend).
		Msg("Starting Marquee with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := initStorage(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer stores.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	metaStore := metastore.New(stores.Backend, metastore.Options{
		DefaultLanguage: cfg.Cache.DefaultLanguage,
		L1Size:          cfg.Cache.L1Size,
		L1TTL:           cfg.Cache.L1TTL,
	})
	ring := trending.New(stores.Backend, cfg.Trending.Length, cfg.Cache.DefaultLanguage)

	recommender := gemini.New(gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.Model,
		BaseURL:           cfg.Gemini.BaseURL,
		Timeout:           cfg.Gemini.Timeout,
		RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
		MaxRetries:        cfg.Gemini.MaxRetries,
	})
	resolver := tmdb.New(tmdb.Config{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		Timeout:           cfg.TMDB.Timeout,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
	})
	traktClient := trakt.New(trakt.Config{
		ClientID:     cfg.Trakt.ClientID,
		ClientSecret: cfg.Trakt.ClientSecret,
		BaseURL:      cfg.Trakt.BaseURL,
		HistoryLimit: cfg.Trakt.HistoryLimit,
		Timeout:      cfg.Trakt.Timeout,
	})

	taskQueue, err := initTasks(cfg, tasks.NewRefresher(resolver, metaStore), tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize task queue")
	}
	defer taskQueue.Close()

	semanticCache, err := initSemantic(cfg, stores, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize semantic cache")
	}

	orchestrator, err := enrich.New(enrich.Deps{
		Store:       metaStore,
		Recommender: recommender,
		Resolver:    resolver,
		Overlay:     rpdb.New(cfg.RPDB.BaseURL),
		Semantic:    semanticCache,
		Trending:    ring,
		Tasks:       taskQueue,
		Backend:     stores.Backend,
	}, enrich.Options{
		DefaultLanguage:      cfg.Cache.DefaultLanguage,
		DefaultProvider:      recommender.Provider(),
		MaxConcurrentLookups: cfg.Enrich.MaxConcurrentLookups,
		LookupTimeout:        cfg.Enrich.LookupTimeout,
		RecommendCount:       cfg.Enrich.RecommendCount,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create enrichment orchestrator")
	}

	credStore := credentials.NewBadgerStore(stores.Credentials)
	coordinator := credentials.NewCoordinator(credStore, credentials.NewCacheLease(stores.Backend), traktClient, credentials.Options{
		RefreshBuffer: cfg.Credentials.RefreshBuffer,
		LeaseTTL:      cfg.Credentials.LeaseTTL,
		ExpiryPadding: cfg.Credentials.ExpiryPadding,
	})

	deps := api.Deps{
		Enricher:       orchestrator,
		Trending:       ring,
		Credentials:    credStore,
		Tokens:         coordinator,
		Backend:        stores.Backend,
		RequestTimeout: cfg.Enrich.RequestTimeout,
	}
	if cfg.Trakt.Enabled() {
		deps.History = traktClient
	}
	if semanticCache != nil {
		deps.Semantic = semanticCache.Index()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(api.NewHandler(deps)),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	for err := range tree.ServeBackground(ctx) {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// Background cache writes outlive their requests; let them land.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer waitCancel()
	if err := orchestrator.Wait(waitCtx); err != nil {
		logging.Warn().Err(err).Msg("Background writes still in flight at shutdown")
	}

	logging.Info().Msg("Application stopped gracefully")
}
