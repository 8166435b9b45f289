// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/marquee/internal/cache"
	"github.com/tomtom215/marquee/internal/metastore"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/semantic"
	"github.com/tomtom215/marquee/internal/storage"
	"github.com/tomtom215/marquee/internal/tasks"
	"github.com/tomtom215/marquee/internal/trending"
)

type fakeRecommender struct {
	rec   models.Recommendation
	err   error
	calls atomic.Int32
}

func (f *fakeRecommender) Recommend(context.Context, models.RecommendRequest) (models.Recommendation, error) {
	f.calls.Add(1)
	return f.rec, f.err
}

// fakeResolver resolves every title to a cacheable record with id "tt-<title>".
// Titles listed in unresolved come back without a poster.
type fakeResolver struct {
	calls      atomic.Int32
	unresolved map[string]bool
	gate       chan struct{}

	mu           sync.Mutex
	metadataKeys []string
}

func (f *fakeResolver) Resolve(ctx context.Context, q models.LookupQuery) models.MetadataRecord {
	f.calls.Add(1)
	f.mu.Lock()
	f.metadataKeys = append(f.metadataKeys, q.MetadataKey)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.unresolved[q.Title] {
		return models.MetadataRecord{DisplayName: q.Title, ContentType: q.ContentType}
	}
	id := "tt-" + strings.ToLower(q.Title)
	return models.MetadataRecord{
		ContentID:   id,
		DisplayName: q.Title,
		ContentType: q.ContentType,
		PosterURL:   models.StringPtr("https://img.example/" + id + ".jpg"),
		PosterShape: models.PosterShapePoster,
	}
}

type fakeOverlay struct{}

func (fakeOverlay) Apply(_ context.Context, rec models.MetadataRecord, key string) models.MetadataRecord {
	return rec.WithPoster("https://rpdb.example/" + key + "/" + rec.ContentID)
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []tasks.Task
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, t tasks.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
	return nil
}

func (f *fakeEnqueuer) all() []tasks.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tasks.Task(nil), f.tasks...)
}

type harness struct {
	orch        *Orchestrator
	backend     *cache.MemoryBackend
	store       *metastore.Store
	recommender *fakeRecommender
	resolver    *fakeResolver
	enqueuer    *fakeEnqueuer
	ring        *trending.Ring
}

func newHarness(t *testing.T, titles ...string) *harness {
	t.Helper()
	backend := cache.NewMemoryBackend(0)
	t.Cleanup(func() { _ = backend.Close() })

	h := &harness{
		backend:     backend,
		store:       metastore.New(backend, metastore.Options{}),
		recommender: &fakeRecommender{rec: models.Recommendation{Language: "en", Titles: titles}},
		resolver:    &fakeResolver{},
		enqueuer:    &fakeEnqueuer{},
		ring:        trending.New(backend, 5, "en"),
	}
	orch, err := New(Deps{
		Store:       h.store,
		Recommender: h.recommender,
		Resolver:    h.resolver,
		Overlay:     fakeOverlay{},
		Trending:    h.ring,
		Tasks:       h.enqueuer,
		Backend:     backend,
	}, Options{MaxConcurrentLookups: 4, LookupTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.orch.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func names(records []models.MetadataRecord) []string {
	out := make([]string, len(records))
	for i := range records {
		out[i] = records[i].DisplayName
	}
	return out
}

func TestNewRequiresCoreDeps(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{}, Options{}); err == nil {
		t.Error("expected error without store, recommender and resolver")
	}
}

func TestEnrichWarmCacheMakesNoLookups(t *testing.T) {
	h := newHarness(t, "Heat", "Ronin", "Collateral")
	req := Request{Query: "heist thrillers", ContentType: models.ContentTypeMovie}

	first, err := h.orch.Enrich(context.Background(), req)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)
	if got := h.resolver.calls.Load(); got != 3 {
		t.Fatalf("cold resolver calls = %d, want 3", got)
	}

	second, err := h.orch.Enrich(context.Background(), req)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)
	if got := h.resolver.calls.Load(); got != 3 {
		t.Errorf("warm run made %d extra resolver calls", got-3)
	}
	if strings.Join(names(first.Records), ",") != strings.Join(names(second.Records), ",") {
		t.Errorf("warm result %v differs from cold %v", names(second.Records), names(first.Records))
	}
}

func TestEnrichPreservesOrderWithMixedHits(t *testing.T) {
	h := newHarness(t, "Alpha", "Bravo", "Charlie", "Delta")

	ctx := context.Background()
	for _, title := range []string{"Bravo", "Delta"} {
		rec := models.MetadataRecord{
			ContentID:   "tt-cached-" + strings.ToLower(title),
			DisplayName: title,
			ContentType: models.ContentTypeMovie,
			PosterURL:   models.StringPtr("https://img.example/cached.jpg"),
		}
		key := h.store.Key(models.ContentTypeMovie, "en", title)
		if err := h.store.Put(ctx, metastore.Item{Key: key, Record: rec}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	res, err := h.orch.Enrich(ctx, Request{Query: "anything", ContentType: models.ContentTypeMovie})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)

	if got := strings.Join(names(res.Records), ","); got != "Alpha,Bravo,Charlie,Delta" {
		t.Errorf("order = %s", got)
	}
	if res.Records[1].ContentID != "tt-cached-bravo" {
		t.Errorf("cached record not used: %+v", res.Records[1])
	}
	if got := h.resolver.calls.Load(); got != 2 {
		t.Errorf("resolver calls = %d, want 2", got)
	}
}

func TestEnrichLegacyRecordSchedulesOneRefresh(t *testing.T) {
	h := newHarness(t, "Heat", "heat ")
	ctx := context.Background()

	key := h.store.Key(models.ContentTypeMovie, "en", "Heat")
	legacyJSON := `{"id":"tt0113277","showName":"Heat","year":"1995-","poster":"https://img.example/heat.jpg"}`
	if err := h.backend.Set(ctx, key, []byte(legacyJSON), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	enqueued := metrics.TasksEnqueued.WithLabelValues(tasks.KindMetadataRefresh, "success")
	before := testutil.ToFloat64(enqueued)

	res, err := h.orch.Enrich(ctx, Request{Query: "pacino", ContentType: models.ContentTypeMovie})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)

	// Enqueue outcomes are counted by the transport, not here.
	if got := testutil.ToFloat64(enqueued); got != before {
		t.Errorf("enqueued counter moved by %v with a fake transport", got-before)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	heat := res.Records[0]
	if heat.DisplayName != "Heat" || heat.ReleaseYear != "1995" || heat.ContentID != "tt0113277" {
		t.Errorf("converted record = %+v", heat)
	}
	if h.resolver.calls.Load() != 0 {
		t.Error("legacy hit should not call the resolver")
	}

	queued := h.enqueuer.all()
	if len(queued) != 1 {
		t.Fatalf("tasks = %d, want exactly 1", len(queued))
	}
	if queued[0].Kind != tasks.KindMetadataRefresh || queued[0].Key != key {
		t.Errorf("task = %+v", queued[0])
	}
}

func TestEnrichRecommendationFailure(t *testing.T) {
	h := newHarness(t)
	h.recommender.err = errors.New("upstream 503")

	res, err := h.orch.Enrich(context.Background(), Request{Query: "x", ContentType: models.ContentTypeSeries})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].ContentID != models.ErrorRecordID {
		t.Errorf("records = %+v, want single error record", res.Records)
	}
	if res.Records[0].ContentType != models.ContentTypeSeries {
		t.Errorf("error record type = %s", res.Records[0].ContentType)
	}
}

func TestEnrichEmptyRecommendation(t *testing.T) {
	h := newHarness(t)

	res, err := h.orch.Enrich(context.Background(), Request{Query: "x", ContentType: models.ContentTypeMovie})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if res.Records == nil || len(res.Records) != 0 {
		t.Errorf("records = %#v, want empty non-nil list", res.Records)
	}
}

func TestEnrichUnresolvedTitlesAreReturnedNotStored(t *testing.T) {
	h := newHarness(t, "Known", "Obscure")
	h.resolver.unresolved = map[string]bool{"Obscure": true}
	ctx := context.Background()

	res, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeMovie})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)

	if len(res.Records) != 2 || res.Records[1].DisplayName != "Obscure" {
		t.Fatalf("records = %+v", res.Records)
	}
	if e := h.store.Get(ctx, h.store.Key(models.ContentTypeMovie, "en", "Obscure")); e.State != metastore.Miss {
		t.Error("unresolved record was persisted")
	}
	if e := h.store.Get(ctx, h.store.Key(models.ContentTypeMovie, "en", "Known")); e.State != metastore.Hit {
		t.Error("resolved record was not persisted")
	}
}

func TestEnrichCancelledCallerStillPersists(t *testing.T) {
	h := newHarness(t, "Heat")
	h.resolver.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeMovie})
		errCh <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.resolver.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Enrich did not return after cancellation")
	}

	close(h.resolver.gate)
	h.wait(t)

	e := h.store.Get(context.Background(), h.store.Key(models.ContentTypeMovie, "en", "Heat"))
	if e.State != metastore.Hit {
		t.Error("lookup finished after cancellation was not persisted")
	}
}

func TestEnrichDeadlineDegradesToErrorRecord(t *testing.T) {
	h := newHarness(t, "Heat")
	h.resolver.gate = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeMovie})
	if err != nil {
		t.Fatalf("Enrich: %v, want degraded result", err)
	}
	if len(res.Records) != 1 || res.Records[0].ContentID != models.ErrorRecordID {
		t.Errorf("records = %+v, want single error record", res.Records)
	}

	close(h.resolver.gate)
	h.wait(t)
}

func TestEnrichRecommenderTimeoutDegrades(t *testing.T) {
	h := newHarness(t)
	h.recommender.err = context.DeadlineExceeded

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	res, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeSeries})
	if err != nil {
		t.Fatalf("Enrich: %v, want degraded result", err)
	}
	if len(res.Records) != 1 || res.Records[0].ContentID != models.ErrorRecordID {
		t.Errorf("records = %+v, want single error record", res.Records)
	}
}

func TestLookupKeepsOwnMetadataKeySeparate(t *testing.T) {
	h := newHarness(t)
	h.resolver.gate = make(chan struct{})
	key := h.store.Key(models.ContentTypeMovie, "en", "Heat")

	var wg sync.WaitGroup
	for _, metadataKey := range []string{"user-key", ""} {
		q := models.LookupQuery{Title: "Heat", ContentType: models.ContentTypeMovie, Language: "en", MetadataKey: metadataKey}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.orch.lookup(context.Background(), key, q)
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.resolver.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(h.resolver.gate)
	wg.Wait()

	if got := h.resolver.calls.Load(); got != 2 {
		t.Fatalf("resolver calls = %d, want one per credential class", got)
	}
	h.resolver.mu.Lock()
	seen := strings.Join(h.resolver.metadataKeys, ",")
	h.resolver.mu.Unlock()
	if !strings.Contains(seen, "user-key") || strings.Count(seen, ",") != 1 {
		t.Errorf("metadata keys = %q, want the user key and the shared key", seen)
	}
}

func TestLookupCoalescesSameCredentialClass(t *testing.T) {
	h := newHarness(t)
	key := h.store.Key(models.ContentTypeMovie, "en", "Heat")
	q := models.LookupQuery{Title: "Heat", ContentType: models.ContentTypeMovie, Language: "en"}

	if flightKey(key, q) == flightKey(key, models.LookupQuery{Title: "Heat", MetadataKey: "k"}) {
		t.Error("own-key and shared-key lookups share a flight")
	}
	if flightKey(key, q) != flightKey(key, models.LookupQuery{Title: "Heat"}) {
		t.Error("shared-key lookups of one key do not share a flight")
	}
}

func TestEnrichHistoryModeFiltersWatched(t *testing.T) {
	h := newHarness(t, "Heat", "Ronin", "Thief")

	res, err := h.orch.Enrich(context.Background(), Request{
		UserID:      "u1",
		History:     []string{"Collateral"},
		WatchedIDs:  []string{"tt-ronin"},
		ContentType: models.ContentTypeMovie,
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)

	if got := strings.Join(names(res.Records), ","); got != "Heat,Thief" {
		t.Errorf("records = %s, want Heat,Thief", got)
	}
}

func TestEnrichOverlayDoesNotLeakIntoStore(t *testing.T) {
	h := newHarness(t, "Heat")
	ctx := context.Background()

	res, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeMovie, PosterKey: "k1"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)

	if got := res.Records[0].Poster(); got != "https://rpdb.example/k1/tt-heat" {
		t.Errorf("response poster = %q", got)
	}
	stored := h.store.Get(ctx, h.store.Key(models.ContentTypeMovie, "en", "Heat"))
	if got := stored.Record.Poster(); got != "https://img.example/tt-heat.jpg" {
		t.Errorf("stored poster = %q, want provider poster", got)
	}
}

func TestEnrichPushesTopRecordToTrending(t *testing.T) {
	h := newHarness(t, "Heat", "Ronin")
	ctx := context.Background()

	if _, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeMovie, Language: "de"}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)

	list := h.ring.Read(ctx, h.ring.ListKey(models.ContentTypeMovie, "de"))
	if len(list) != 1 || list[0].DisplayName != "Heat" {
		t.Errorf("trending = %v", names(list))
	}
}

func TestEnrichSemanticCache(t *testing.T) {
	db, err := storage.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	index, err := semantic.NewBadgerIndex(db, nil)
	if err != nil {
		t.Fatalf("NewBadgerIndex: %v", err)
	}
	sc, err := semantic.NewCache(index, 0.95, semantic.CacheOptions{})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	h := newHarness(t, "Heat", "Ronin")
	h.orch.deps.Semantic = sc
	ctx := context.Background()

	first, err := h.orch.Enrich(ctx, Request{Query: "Heist Thrillers", ContentType: models.ContentTypeMovie})
	if err != nil || first.Cached {
		t.Fatalf("first Enrich: cached=%v err=%v", first.Cached, err)
	}
	h.wait(t)

	second, err := h.orch.Enrich(ctx, Request{Query: "  heist   thrillers", ContentType: models.ContentTypeMovie, PosterKey: "k"})
	if err != nil {
		t.Fatalf("second Enrich: %v", err)
	}
	if !second.Cached {
		t.Fatal("expected semantic hit")
	}
	if h.recommender.calls.Load() != 1 {
		t.Errorf("recommender calls = %d, want 1", h.recommender.calls.Load())
	}
	if got := strings.Join(names(second.Records), ","); got != "Heat,Ronin" {
		t.Errorf("cached records = %s", got)
	}
	if !strings.HasPrefix(second.Records[0].Poster(), "https://rpdb.example/k/") {
		t.Errorf("overlay not applied to cached result: %q", second.Records[0].Poster())
	}

	// Results produced with a caller key are not shared.
	if _, err := h.orch.Enrich(ctx, Request{Query: "space operas", ContentType: models.ContentTypeMovie, ProviderKey: "own"}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)
	if _, hit := sc.Lookup(ctx, semantic.NewFingerprint(models.ContentTypeMovie, "en", "en", "space operas")); hit {
		t.Error("custom-key result was written to the semantic cache")
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t, "Heat")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeMovie}); err != nil {
			t.Fatalf("Enrich: %v", err)
		}
	}
	if _, err := h.orch.Enrich(ctx, Request{Query: "x", ContentType: models.ContentTypeSeries}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	h.wait(t)

	stats, err := h.orch.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[models.ContentTypeMovie] != 3 || stats[models.ContentTypeSeries] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestBatchResolveRejectsMismatchedKeys(t *testing.T) {
	h := newHarness(t)
	if _, err := h.orch.BatchResolve(context.Background(), []string{"a", "b"}, "en", models.ContentTypeMovie, []string{"k"}); err == nil {
		t.Error("expected error for mismatched keys")
	}
}

func TestBatchResolveCoalescesDuplicateTitles(t *testing.T) {
	h := newHarness(t)
	h.resolver.gate = make(chan struct{})
	titles := []string{"Heat", "Heat", "Heat"}
	keys := make([]string, len(titles))
	for i, title := range titles {
		keys[i] = h.store.Key(models.ContentTypeMovie, "en", title)
	}

	done := make(chan Resolution, 1)
	go func() {
		res, _ := h.orch.BatchResolve(context.Background(), titles, "en", models.ContentTypeMovie, keys)
		done <- res
	}()
	time.Sleep(50 * time.Millisecond)
	close(h.resolver.gate)

	res := <-done
	h.wait(t)
	if got := h.resolver.calls.Load(); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
	for i, rec := range res.Records {
		if rec.ContentID != "tt-heat" {
			t.Errorf("record %d = %+v", i, rec)
		}
	}
}
