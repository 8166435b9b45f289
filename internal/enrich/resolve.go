// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package enrich

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metastore"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/tasks"
)

// Resolution is the outcome of a batch resolve.
type Resolution struct {
	// Records holds one record per title, in title order.
	Records []models.MetadataRecord

	// Fresh are the cacheable records resolved from the provider.
	Fresh []metastore.Item

	Misses int
	Legacy int
}

type batch struct {
	titles      []string
	keys        []string
	language    string
	contentType models.ContentType
	metadataKey string
}

// BatchResolve resolves titles with the shared metadata key. keys[i] must be
// the store key of titles[i]. Records are not persisted.
func (o *Orchestrator) BatchResolve(ctx context.Context, titles []string, language string, contentType models.ContentType, keys []string) (Resolution, error) {
	if len(titles) != len(keys) {
		return Resolution{}, fmt.Errorf("enrich: %d titles but %d keys", len(titles), len(keys))
	}
	return o.batchResolve(ctx, batch{titles: titles, keys: keys, language: language, contentType: contentType})
}

func (o *Orchestrator) batchResolve(ctx context.Context, b batch) (Resolution, error) {
	entries := o.deps.Store.MultiGet(ctx, b.keys)

	res := Resolution{Records: make([]models.MetadataRecord, len(b.titles))}
	queued := make(map[string]struct{})
	var missing []int
	for i, e := range entries {
		switch e.State {
		case metastore.Hit:
			res.Records[i] = e.Record
		case metastore.LegacyHit:
			res.Records[i] = e.Record
			res.Legacy++
			if _, dup := queued[e.Key]; !dup {
				queued[e.Key] = struct{}{}
				o.enqueueRefresh(ctx, tasks.NewRefreshTask(b.titles[i], b.contentType, b.language, e.Key))
			}
		default:
			missing = append(missing, i)
		}
	}
	res.Misses = len(missing)
	if len(missing) == 0 {
		return res, nil
	}

	detached := context.WithoutCancel(ctx)
	resolved := make([]models.MetadataRecord, len(missing))
	done := make(chan struct{})
	o.goBackground(func() {
		defer close(done)
		p := pool.New().WithMaxGoroutines(o.opts.MaxConcurrentLookups)
		for j, i := range missing {
			q := models.LookupQuery{
				Title:       b.titles[i],
				ContentType: b.contentType,
				Language:    b.language,
				MetadataKey: b.metadataKey,
			}
			key := b.keys[i]
			p.Go(func() {
				resolved[j] = o.lookup(detached, key, q)
			})
		}
		p.Wait()
	})

	select {
	case <-done:
	case <-ctx.Done():
		o.goBackground(func() {
			<-done
			items := freshItems(b, missing, resolved)
			if len(items) == 0 {
				return
			}
			if err := o.deps.Store.MultiPut(detached, items); err != nil {
				o.logger.Warn().Err(err).Int("records", len(items)).Msg("Persisting abandoned lookups failed")
				return
			}
			o.logger.Debug().Int("records", len(items)).Msg("Persisted lookups for a cancelled request")
		})
		return Resolution{}, ctx.Err()
	}

	for j, i := range missing {
		res.Records[i] = resolved[j]
	}
	res.Fresh = freshItems(b, missing, resolved)
	return res, nil
}

// lookup coalesces concurrent resolves of the same key. Lookups made with
// a user's own metadata key never share a flight with shared-key lookups.
func (o *Orchestrator) lookup(ctx context.Context, key string, q models.LookupQuery) models.MetadataRecord {
	v, _, _ := o.flight.Do(flightKey(key, q), func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(ctx, o.opts.LookupTimeout)
		defer cancel()
		rec := o.deps.Resolver.Resolve(lctx, q)
		if rec.Cacheable() {
			metrics.ProviderLookups.WithLabelValues("resolved").Inc()
		} else {
			metrics.ProviderLookups.WithLabelValues("unresolved").Inc()
		}
		return rec, nil
	})
	rec, _ := v.(models.MetadataRecord)
	if rec.ContentType == "" {
		rec.ContentType = q.ContentType
	}
	return rec
}

func flightKey(key string, q models.LookupQuery) string {
	if q.MetadataKey != "" {
		return key + "|own"
	}
	return key + "|shared"
}

func freshItems(b batch, missing []int, resolved []models.MetadataRecord) []metastore.Item {
	var items []metastore.Item
	for j, i := range missing {
		if resolved[j].Cacheable() {
			items = append(items, metastore.Item{Key: b.keys[i], Language: b.language, Record: resolved[j]})
		}
	}
	return items
}

func (o *Orchestrator) enqueueRefresh(ctx context.Context, task tasks.Task) {
	if o.deps.Tasks == nil {
		return
	}
	if err := o.deps.Tasks.Enqueue(context.WithoutCancel(ctx), task); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "enrich").Str("key", task.Key).Msg("Refresh task enqueue failed")
	}
}
