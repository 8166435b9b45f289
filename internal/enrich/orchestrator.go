// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package enrich turns a query or a watch history into an ordered list of
// metadata records.
//
// A request passes through these stages:
//
//	semantic lookup -> recommend -> batch resolve -> persist -> poster overlay -> watched filter
//
// Persistence runs in the background and never delays the response. Provider
// lookups for cache misses run on a context detached from the caller, so a
// disconnecting client still leaves the resolved records in the cache.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metastore"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/semantic"
	"github.com/tomtom215/marquee/internal/tasks"
	"github.com/tomtom215/marquee/internal/trending"
)

// Recommender produces titles for a query or history.
type Recommender interface {
	Recommend(ctx context.Context, req models.RecommendRequest) (models.Recommendation, error)
}

// MetadataResolver resolves one title. It never fails; an unresolved title
// comes back as a record that is not cacheable.
type MetadataResolver interface {
	Resolve(ctx context.Context, q models.LookupQuery) models.MetadataRecord
}

// PosterOverlay replaces a record's poster for callers with a poster key.
type PosterOverlay interface {
	Apply(ctx context.Context, rec models.MetadataRecord, posterKey string) models.MetadataRecord
}

// Request is one enrichment call. History mode is selected by a non-empty
// History; otherwise Query drives the recommendation.
type Request struct {
	UserID      string
	Query       string
	History     []string
	WatchedIDs  []string
	ContentType models.ContentType
	Language    string

	// Provider names the recommendation provider; ProviderKey is the
	// caller's own key for it, empty for the shared key.
	Provider    string
	ProviderKey string
	MetadataKey string
	PosterKey   string
}

func (r *Request) historyMode() bool { return len(r.History) > 0 }

// Result is the enriched list. Records is never nil.
type Result struct {
	Records []models.MetadataRecord

	// Cached is set when the semantic cache answered the request.
	Cached bool
}

// Options tunes the orchestrator.
type Options struct {
	DefaultLanguage      string
	DefaultProvider      string
	MaxConcurrentLookups int
	LookupTimeout        time.Duration
	RecommendCount       int
}

func (o *Options) applyDefaults() {
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = "en"
	}
	if o.DefaultProvider == "" {
		o.DefaultProvider = "gemini"
	}
	if o.MaxConcurrentLookups < 1 {
		o.MaxConcurrentLookups = 8
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = 10 * time.Second
	}
	if o.RecommendCount < 1 {
		o.RecommendCount = 20
	}
}

// Deps are the collaborators. Store, Recommender and Resolver are required;
// the rest may be nil, which disables the matching stage.
type Deps struct {
	Store       *metastore.Store
	Recommender Recommender
	Resolver    MetadataResolver
	Overlay     PosterOverlay
	Semantic    *semantic.Cache
	Trending    *trending.Ring
	Tasks       tasks.Enqueuer
	Backend     cache.Backend
}

// Orchestrator runs enrichment requests.
type Orchestrator struct {
	deps   Deps
	opts   Options
	flight singleflight.Group
	bg     conc.WaitGroup
	logger zerolog.Logger
}

// New creates an Orchestrator.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Store == nil || deps.Recommender == nil || deps.Resolver == nil {
		return nil, errors.New("enrich: store, recommender and resolver are required")
	}
	opts.applyDefaults()
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logging.WithComponent("enrich"),
	}, nil
}

// Enrich runs the pipeline for req. The only error returned is
// context.Canceled when the caller has gone away. Upstream failures and an
// expired deadline degrade to a single error record.
func (o *Orchestrator) Enrich(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	if req.Language == "" {
		req.Language = o.opts.DefaultLanguage
	}
	if req.Provider == "" {
		req.Provider = o.opts.DefaultProvider
	}
	o.countRequest(ctx, req.ContentType)

	var fp semantic.Fingerprint
	useSemantic := !req.historyMode() && o.deps.Semantic != nil
	if useSemantic {
		fp = semantic.NewFingerprint(req.ContentType, req.Language, o.opts.DefaultLanguage, req.Query)
		if records, ok := o.deps.Semantic.Lookup(ctx, fp); ok {
			if len(records) > 0 {
				o.pushTrending(ctx, req.ContentType, req.Language, records[0])
			}
			records = o.overlay(ctx, records, req.PosterKey)
			metrics.RecordEnrichment(string(req.ContentType), "semantic", len(records), time.Since(start))
			return Result{Records: records, Cached: true}, nil
		}
	}

	rec, err := o.deps.Recommender.Recommend(ctx, models.RecommendRequest{
		Query:       req.Query,
		History:     req.History,
		ContentType: req.ContentType,
		Language:    req.Language,
		Count:       o.opts.RecommendCount,
		APIKey:      req.ProviderKey,
	})
	if err != nil {
		if callerGone(ctx) {
			return Result{}, ctx.Err()
		}
		logging.Ctx(ctx).Warn().Err(err).Str("component", "enrich").Msg("Recommendation failed")
		return o.degraded(req, start, "The recommendation service is unavailable. Try again shortly."), nil
	}
	if len(rec.Titles) == 0 {
		metrics.RecordEnrichment(string(req.ContentType), "pipeline", 0, time.Since(start))
		return Result{Records: []models.MetadataRecord{}}, nil
	}

	language := rec.Language
	if language == "" {
		language = req.Language
	}
	keys := make([]string, len(rec.Titles))
	for i, title := range rec.Titles {
		keys[i] = o.deps.Store.Key(req.ContentType, language, title)
	}

	res, err := o.batchResolve(ctx, batch{
		titles:      rec.Titles,
		keys:        keys,
		language:    language,
		contentType: req.ContentType,
		metadataKey: req.MetadataKey,
	})
	if err != nil {
		if callerGone(ctx) {
			return Result{}, err
		}
		logging.Ctx(ctx).Warn().Err(err).Str("component", "enrich").Msg("Metadata lookups ran out of time")
		return o.degraded(req, start, "Recommendations took too long. Try again shortly."), nil
	}

	job := persistJob{
		items:       res.Fresh,
		records:     res.Records,
		contentType: req.ContentType,
		language:    req.Language,
	}
	if useSemantic {
		job.fingerprint = &fp
		job.policy = semantic.StorePolicy{CustomKey: req.ProviderKey != "", Provider: req.Provider}
	}
	o.goBackground(func() { o.persist(context.WithoutCancel(ctx), job) })

	records := o.overlay(ctx, res.Records, req.PosterKey)
	if req.historyMode() {
		records = filterWatched(records, req.WatchedIDs)
	}

	o.logger.Debug().
		Str("content_type", string(req.ContentType)).
		Int("titles", len(rec.Titles)).
		Int("misses", res.Misses).
		Int("legacy", res.Legacy).
		Dur("elapsed", time.Since(start)).
		Msg("Enrichment complete")
	metrics.RecordEnrichment(string(req.ContentType), "pipeline", len(records), time.Since(start))
	return Result{Records: records}, nil
}

// overlay returns a new slice; records is left untouched so the background
// persist job keeps the provider posters.
func (o *Orchestrator) overlay(ctx context.Context, records []models.MetadataRecord, posterKey string) []models.MetadataRecord {
	out := make([]models.MetadataRecord, len(records))
	copy(out, records)
	if o.deps.Overlay == nil || posterKey == "" {
		return out
	}
	for i := range out {
		out[i] = o.deps.Overlay.Apply(ctx, out[i], posterKey)
	}
	return out
}

func filterWatched(records []models.MetadataRecord, watchedIDs []string) []models.MetadataRecord {
	if len(watchedIDs) == 0 {
		return records
	}
	watched := make(map[string]struct{}, len(watchedIDs))
	for _, id := range watchedIDs {
		if id != "" {
			watched[id] = struct{}{}
		}
	}
	out := records[:0]
	for _, rec := range records {
		if _, seen := watched[rec.ContentID]; seen {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (o *Orchestrator) pushTrending(ctx context.Context, contentType models.ContentType, language string, rec models.MetadataRecord) {
	if o.deps.Trending == nil || !rec.Cacheable() {
		return
	}
	listKey := o.deps.Trending.ListKey(contentType, language)
	if err := o.deps.Trending.Push(ctx, listKey, rec); err != nil {
		o.logger.Warn().Err(err).Str("list", listKey).Msg("Trending push failed")
	}
}

func statsKey(contentType models.ContentType) string {
	return "stats:requests:" + string(contentType)
}

func (o *Orchestrator) countRequest(ctx context.Context, contentType models.ContentType) {
	if o.deps.Backend == nil {
		return
	}
	if _, err := o.deps.Backend.Incr(ctx, statsKey(contentType)); err != nil {
		o.logger.Debug().Err(err).Msg("Request counter increment failed")
	}
}

// Stats returns the request count per content type.
func (o *Orchestrator) Stats(ctx context.Context) (map[models.ContentType]int64, error) {
	out := map[models.ContentType]int64{
		models.ContentTypeMovie:  0,
		models.ContentTypeSeries: 0,
	}
	if o.deps.Backend == nil {
		return out, nil
	}
	for ct := range out {
		data, err := o.deps.Backend.Get(ctx, statsKey(ct))
		if errors.Is(err, cache.ErrMiss) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read request stats: %w", err)
		}
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse request stats for %s: %w", ct, err)
		}
		out[ct] = n
	}
	return out, nil
}

// degraded is the single-error-record result returned when upstreams fail.
func (o *Orchestrator) degraded(req Request, start time.Time, message string) Result {
	metrics.RecordEnrichment(string(req.ContentType), "error", 1, time.Since(start))
	return Result{Records: []models.MetadataRecord{models.ErrorRecord(req.ContentType, message)}}
}

// callerGone reports whether ctx was cancelled rather than timed out.
func callerGone(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
