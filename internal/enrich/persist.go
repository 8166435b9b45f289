// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package enrich

import (
	"context"

	"github.com/tomtom215/marquee/internal/metastore"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/semantic"
)

type persistJob struct {
	items       []metastore.Item
	records     []models.MetadataRecord
	contentType models.ContentType
	language    string

	// fingerprint is nil when the semantic cache does not apply.
	fingerprint *semantic.Fingerprint
	policy      semantic.StorePolicy
}

func (o *Orchestrator) persist(ctx context.Context, job persistJob) {
	if len(job.items) > 0 {
		if err := o.deps.Store.MultiPut(ctx, job.items); err != nil {
			o.logger.Warn().Err(err).Int("records", len(job.items)).Msg("Metadata persist failed")
		}
	}
	if len(job.records) > 0 {
		o.pushTrending(ctx, job.contentType, job.language, job.records[0])
	}
	if job.fingerprint != nil && o.deps.Semantic != nil {
		o.deps.Semantic.Store(ctx, *job.fingerprint, job.records, job.policy)
	}
}

// goBackground runs fn as tracked background work.
func (o *Orchestrator) goBackground(fn func()) {
	metrics.BackgroundJobs.Inc()
	o.bg.Go(func() {
		defer metrics.BackgroundJobs.Dec()
		fn()
	})
}

// Wait blocks until all background work has finished or ctx ends. A panic in
// background work is logged here rather than crashing the process.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if r := o.bg.WaitAndRecover(); r != nil {
			o.logger.Error().Str("panic", r.String()).Msg("Background enrichment work panicked")
		}
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
