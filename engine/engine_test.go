package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/metrics"
	"github.com/rushteam/contentrec/recall"
	"github.com/rushteam/contentrec/rerank"
	"github.com/rushteam/contentrec/store"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	engine  *Engine
	catalog *store.KVCatalog
	events  *store.KVEvents
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, items []*core.ContentItem, events []*core.InteractionEvent, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })

	f := &fixture{
		catalog: store.NewKVCatalog(kv, "test"),
		events:  store.NewKVEvents(kv, "test"),
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	for _, it := range items {
		it.Published = true
		require.NoError(t, f.catalog.PutContent(ctx, it))
	}
	for _, ev := range events {
		require.NoError(t, f.events.AppendEvent(ctx, ev))
	}

	opts = append([]Option{WithClock(func() time.Time { return now }), WithMetrics(f.metrics)}, opts...)
	e, err := New(f.catalog, f.events, opts...)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx))
	f.engine = e
	return f
}

func event(user string, action core.Action, content string, ago time.Duration) *core.InteractionEvent {
	return &core.InteractionEvent{
		EventType: core.EventTypeContentInteraction,
		Action:    action,
		ContentID: content,
		UserID:    user,
		Timestamp: now.Add(-ago),
	}
}

func ids(items []*core.RecommendationScore) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ContentID
	}
	return out
}

func scenarioCatalog() []*core.ContentItem {
	return []*core.ContentItem{
		{ID: "A", Title: "Finance basics", Type: core.ContentTypeEpisode, Categories: []string{"finance"}, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "B", Title: "Finance deep dive", Type: core.ContentTypeEpisode, Categories: []string{"finance"}, CreatedAt: now.Add(-40 * 24 * time.Hour)},
		{ID: "C", Title: "Tax report", Type: core.ContentTypeReport, Categories: []string{"tax"}, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "D", Title: "Crypto outlook", Type: core.ContentTypeInsight, Categories: []string{"crypto"}, CreatedAt: now.Add(-3 * 24 * time.Hour)},
	}
}

func TestEngine_ContentBasedScenario(t *testing.T) {
	f := newFixture(t, scenarioCatalog(), nil)

	res, err := f.engine.ContentBased(context.Background(), "A", 5)
	require.NoError(t, err)
	require.False(t, res.Degraded())
	require.NotEmpty(t, res.Items)

	assert.Equal(t, "B", res.Items[0].ContentID)
	assert.NotContains(t, ids(res.Items), "A")
	assert.Equal(t, "Finance deep dive", res.Items[0].Content.Title)
	assert.Equal(t, []string{recall.ReasonSimilarContent}, res.Items[0].Reasons)
	for _, it := range res.Items {
		assert.GreaterOrEqual(t, it.Score, 0.0)
		assert.LessOrEqual(t, it.Score, 1.0)
	}
}

func TestEngine_LimitBounds(t *testing.T) {
	items := make([]*core.ContentItem, 0, 30)
	for i := 0; i < 30; i++ {
		items = append(items, &core.ContentItem{
			ID:         fmt.Sprintf("c%02d", i),
			Title:      "Investing for beginners",
			Type:       core.ContentTypeInsight,
			Categories: []string{"investing"},
			CreatedAt:  now.Add(-time.Duration(i) * time.Hour),
		})
	}
	f := newFixture(t, items, nil)
	ctx := context.Background()

	for _, limit := range []int{0, 1, 3, 10, 50} {
		res, err := f.engine.ContentBased(ctx, "c00", limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Items), limit)
		assert.NotContains(t, ids(res.Items), "c00")
	}

	res, err := f.engine.ContentBased(ctx, "c00", 50)
	require.NoError(t, err)
	assert.Len(t, res.Items, index.DefaultTopK)

	_, err = f.engine.ContentBased(ctx, "c00", -1)
	assert.ErrorIs(t, err, core.ErrInvalidLimit)
	_, err = f.engine.Personalized(ctx, "u1", -5, nil)
	assert.True(t, core.IsInvalidInput(err))
}

func TestEngine_MissingDataIsEmpty(t *testing.T) {
	f := newFixture(t, scenarioCatalog(), nil)
	ctx := context.Background()

	res, err := f.engine.ContentBased(ctx, "unknown", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.False(t, res.Degraded())

	res, err = f.engine.Personalized(ctx, "nobody", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.Degraded())

	res, err = f.engine.Trending(ctx, recall.WindowWeek, 5)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestEngine_EmptyCatalog(t *testing.T) {
	f := newFixture(t, nil, []*core.InteractionEvent{event("u1", core.ActionView, "ghost", time.Hour)})
	ctx := context.Background()

	resp, err := f.engine.Recommend(ctx, Request{UserID: "u1", ContentID: "ghost", Limit: 5})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	for _, r := range resp.Results {
		assert.Empty(t, r.Items, r.Strategy)
		assert.False(t, r.Degraded(), r.Strategy)
	}
	assert.Empty(t, resp.Merged)
	assert.Equal(t, 0, f.engine.IndexStats().Items)
}

func TestEngine_PersonalizedScenario(t *testing.T) {
	items := []*core.ContentItem{
		{ID: "A", Title: "Market wrap", Type: core.ContentTypeEpisode, Categories: []string{"markets"}, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "B", Title: "Pension planning", Type: core.ContentTypeEpisode, Categories: []string{"retirement"}, CreatedAt: now.Add(-2 * 24 * time.Hour)},
		{ID: "E", Title: "Another episode", Type: core.ContentTypeEpisode, Categories: []string{"markets"}, CreatedAt: now.Add(-24 * time.Hour)},
		{ID: "C", Title: "Quarterly outlook", Type: core.ContentTypeReport, Categories: []string{"tax"}, CreatedAt: now.Add(-60 * 24 * time.Hour)},
	}
	f := newFixture(t, items, []*core.InteractionEvent{event("u1", core.ActionView, "A", time.Hour)})
	ctx := context.Background()

	p, err := f.engine.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.ContentType{core.ContentTypeEpisode}, p.PreferredTypes)
	assert.Equal(t, []string{"A"}, p.ViewedContentIDs)

	res, err := f.engine.Personalized(ctx, "u1", 10, []string{"E"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)

	got := ids(res.Items)
	assert.NotContains(t, got, "A")
	assert.NotContains(t, got, "E")
	assert.Equal(t, "B", got[0])
	assert.GreaterOrEqual(t, res.Items[0].Score, 0.4-1e-9)
	assert.Contains(t, res.Items[0].Reasons, "Matches your episode preference")
	assert.Contains(t, res.Items[0].Reasons, recall.ReasonRecentlyAdded)
	for _, it := range res.Items {
		assert.GreaterOrEqual(t, it.Score, 0.0)
		assert.NotEmpty(t, it.Reasons)
	}
}

func TestEngine_TrendingScenario(t *testing.T) {
	var events []*core.InteractionEvent
	for i := 0; i < 5; i++ {
		events = append(events, event(fmt.Sprintf("v%d", i), core.ActionView, "C", time.Hour))
	}
	events = append(events, event("s", core.ActionShare, "C", 2*time.Hour))
	events = append(events, event("b1", core.ActionBookmark, "D", 3*time.Hour))
	events = append(events, event("b2", core.ActionBookmark, "D", 4*time.Hour))
	// 窗口之外
	events = append(events, event("old", core.ActionShare, "A", 3*24*time.Hour))

	f := newFixture(t, scenarioCatalog(), events)
	res, err := f.engine.Trending(context.Background(), recall.WindowDay, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"C", "D"}, ids(res.Items))
	assert.Equal(t, "8", res.Items[0].Label("engagement"))
	assert.Equal(t, "4", res.Items[1].Label("engagement"))
	assert.Equal(t, "5 views, 1 shares, 0 bookmarks.", res.Items[0].Reasons[0])
	assert.Equal(t, recall.StrategyTrending, res.Items[0].Label("recall_source"))

	res, err = f.engine.Trending(context.Background(), recall.WindowWeek, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "A"}, ids(res.Items))

	_, err = f.engine.Trending(context.Background(), "year", 10)
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
}

type failingEvents struct{ err error }

func (f failingEvents) EventsForUser(context.Context, string, time.Time) ([]*core.InteractionEvent, error) {
	return nil, f.err
}

func (f failingEvents) EventsInWindow(context.Context, time.Time) ([]*core.InteractionEvent, error) {
	return nil, f.err
}

func TestEngine_StoreFailureDegradesOnlyAffectedStrategies(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	defer kv.Close()
	catalog := store.NewKVCatalog(kv, "")
	for _, it := range scenarioCatalog() {
		it.Published = true
		require.NoError(t, catalog.PutContent(ctx, it))
	}
	m := metrics.New(prometheus.NewRegistry())
	e, err := New(catalog, failingEvents{err: core.EventsUnavailable(errors.New("connection refused"))},
		WithClock(func() time.Time { return now }), WithMetrics(m))
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx))

	resp, err := e.Recommend(ctx, Request{UserID: "u1", ContentID: "A", Limit: 5})
	require.NoError(t, err)

	cb, ok := resp.Result(recall.StrategyContentBased)
	require.True(t, ok)
	assert.False(t, cb.Degraded())
	assert.NotEmpty(t, cb.Items)

	for _, s := range []string{recall.StrategyPersonalized, recall.StrategyTrending} {
		r, ok := resp.Result(s)
		require.True(t, ok)
		assert.True(t, r.Degraded(), s)
		assert.True(t, core.IsUnavailable(r.Cause), s)
		assert.Empty(t, r.Items, s)
	}
	assert.Equal(t, ids(cb.Items), ids(resp.Merged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategyRequests.WithLabelValues(recall.StrategyTrending, metrics.OutcomeDegraded)))

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cause":`)
}

type flakyCatalog struct {
	core.CatalogReader
	fail bool
}

func (c *flakyCatalog) ListPublished(ctx context.Context, types ...core.ContentType) ([]*core.ContentItem, error) {
	if c.fail {
		return nil, core.CatalogUnavailable(errors.New("timeout"))
	}
	return c.CatalogReader.ListPublished(ctx, types...)
}

func (c *flakyCatalog) Get(ctx context.Context, id string) (*core.ContentItem, error) {
	if c.fail {
		return nil, core.CatalogUnavailable(errors.New("timeout"))
	}
	return c.CatalogReader.Get(ctx, id)
}

func TestEngine_CatalogFailure(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	defer kv.Close()
	kvc := store.NewKVCatalog(kv, "")
	for _, it := range scenarioCatalog() {
		it.Published = true
		require.NoError(t, kvc.PutContent(ctx, it))
	}
	catalog := &flakyCatalog{CatalogReader: kvc, fail: true}

	e, err := New(catalog, nil, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	err = e.Start(ctx)
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
	assert.Equal(t, 0, e.IndexStats().Items)

	// 目录恢复后重建
	catalog.fail = false
	st, err := e.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Items)

	// 索引可用但富化阶段目录故障：策略降级
	catalog.fail = true
	res, err := e.ContentBased(ctx, "A", 5)
	require.NoError(t, err)
	assert.True(t, res.Degraded())
	assert.Empty(t, res.Items)

	// 重建失败保留旧索引
	_, err = e.RebuildIndex(ctx)
	require.Error(t, err)
	assert.Equal(t, 4, e.IndexStats().Items)
}

func TestEngine_EnrichmentDropsRemovedContent(t *testing.T) {
	f := newFixture(t, scenarioCatalog(), nil)
	ctx := context.Background()

	// B 在索引构建后被下架
	require.NoError(t, f.catalog.PutContent(ctx, &core.ContentItem{ID: "B", Title: "Finance deep dive", Type: core.ContentTypeEpisode, Published: false}))

	res, err := f.engine.ContentBased(ctx, "A", 5)
	require.NoError(t, err)
	assert.NotContains(t, ids(res.Items), "B")
	for _, it := range res.Items {
		require.NotNil(t, it.Content)
	}
}

func TestEngine_RebuildIndexPicksUpNewContent(t *testing.T) {
	f := newFixture(t, scenarioCatalog(), nil)
	ctx := context.Background()
	before := f.engine.IndexStats()

	require.NoError(t, f.catalog.PutContent(ctx, &core.ContentItem{
		ID: "A2", Title: "Finance basics part two", Type: core.ContentTypeEpisode,
		Categories: []string{"finance"}, Published: true, CreatedAt: now,
	}))
	res, err := f.engine.ContentBased(ctx, "A2", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	st, err := f.engine.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, st.Version)
	assert.Equal(t, 5, st.Items)

	res, err = f.engine.ContentBased(ctx, "A2", 5)
	require.NoError(t, err)
	assert.Equal(t, "A", res.Items[0].ContentID)
}

func TestEngine_ProfileCacheLifecycle(t *testing.T) {
	f := newFixture(t, scenarioCatalog(), []*core.InteractionEvent{event("u1", core.ActionView, "A", time.Hour)})
	ctx := context.Background()

	res, err := f.engine.Personalized(ctx, "u1", 10, nil)
	require.NoError(t, err)
	assert.NotContains(t, ids(res.Items), "A")

	require.NoError(t, f.events.AppendEvent(ctx, event("u1", core.ActionView, "B", time.Minute)))

	// 缓存未失效：仍可能推荐 B
	p, err := f.engine.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, p.ViewedContentIDs)

	f.engine.InvalidateProfile("u1")
	res, err = f.engine.Personalized(ctx, "u1", 10, nil)
	require.NoError(t, err)
	assert.NotContains(t, ids(res.Items), "B")

	require.NoError(t, f.events.AppendEvent(ctx, event("u1", core.ActionView, "D", time.Second)))
	p, err = f.engine.RebuildProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "A"}, p.ViewedContentIDs)

	f.engine.PurgeProfiles()
}

func TestEngine_RecommendFiltersAndMerge(t *testing.T) {
	var events []*core.InteractionEvent
	events = append(events, event("x", core.ActionShare, "C", time.Hour))
	events = append(events, event("y", core.ActionView, "B", time.Hour))
	f := newFixture(t, scenarioCatalog(), events)
	ctx := context.Background()

	resp, err := f.engine.Recommend(ctx, Request{
		ContentID:  "A",
		Strategies: []string{recall.StrategyContentBased, recall.StrategyTrending},
		Limit:      3,
		Types:      []core.ContentType{core.ContentTypeEpisode, core.ContentTypeReport},
		Merge:      recall.MergeFirst,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		for _, it := range r.Items {
			assert.Contains(t, []core.ContentType{core.ContentTypeEpisode, core.ContentTypeReport}, it.Content.Type)
		}
	}
	assert.LessOrEqual(t, len(resp.Merged), 3)
	seen := map[string]bool{}
	for _, it := range resp.Merged {
		assert.False(t, seen[it.ContentID], "duplicate %s", it.ContentID)
		seen[it.ContentID] = true
	}

	resp, err = f.engine.Recommend(ctx, Request{
		Strategies: []string{recall.StrategyTrending},
		Limit:      5,
		Filter:     `item.type == "report" && "tax" in item.categories`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, ids(resp.Results[0].Items))

	cb, ok := resp.Result(recall.StrategyContentBased)
	assert.False(t, ok)
	assert.Nil(t, cb)
}

func TestEngine_MergedLabelsDoNotLeakIntoResults(t *testing.T) {
	events := []*core.InteractionEvent{event("x", core.ActionShare, "B", time.Hour)}
	f := newFixture(t, scenarioCatalog(), events)

	resp, err := f.engine.Recommend(context.Background(), Request{
		ContentID:  "A",
		Strategies: []string{recall.StrategyContentBased, recall.StrategyTrending},
		Limit:      5,
		Merge:      recall.MergeScore,
	})
	require.NoError(t, err)
	cb, _ := resp.Result(recall.StrategyContentBased)
	for _, it := range cb.Items {
		assert.Equal(t, recall.StrategyContentBased, it.Label("recall_source"))
	}
	for i := 1; i < len(resp.Merged); i++ {
		assert.GreaterOrEqual(t, resp.Merged[i-1].Score, resp.Merged[i].Score)
	}
}

func TestEngine_InvalidRequests(t *testing.T) {
	f := newFixture(t, scenarioCatalog(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"negative limit", Request{Limit: -1}},
		{"unknown window", Request{Limit: 1, Window: "quarter"}},
		{"unknown strategy", Request{Limit: 1, Strategies: []string{"random"}}},
		{"unknown type", Request{Limit: 1, Types: []core.ContentType{"video"}}},
		{"bad filter", Request{Limit: 1, Filter: "item.type =="}},
		{"bad merge", Request{Limit: 1, Merge: "zip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Recommend(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
		})
	}
}

func TestEngine_ExtraNodes(t *testing.T) {
	f := newFixture(t, scenarioCatalog(), nil, WithNodes(func(*index.Holder) ([]pipeline.Node, error) {
		return []pipeline.Node{&rerank.TopNNode{N: 1}}, nil
	}))
	res, err := f.engine.ContentBased(context.Background(), "A", 5)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	_, err = New(nil, nil, WithNodes(func(*index.Holder) ([]pipeline.Node, error) {
		return nil, errors.New("unknown node type")
	}))
	assert.Error(t, err)

	bad := core.DefaultSimilarityWeights()
	bad.SameType = -1
	_, err = New(nil, nil, WithSimilarityWeights(bad))
	assert.Error(t, err)
}
