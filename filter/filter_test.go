package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
)

func holderWith(t *testing.T, items ...*core.ContentItem) *index.Holder {
	t.Helper()
	b := index.NewBuilder(nil)
	x, err := b.BuildFrom(context.Background(), items)
	require.NoError(t, err)
	h := index.NewHolder(b)
	h.Publish(x)
	return h
}

func candidates(ids ...string) []*core.RecommendationScore {
	out := make([]*core.RecommendationScore, len(ids))
	for i, id := range ids {
		out[i] = core.NewRecommendationScore(id)
	}
	return out
}

func ids(items []*core.RecommendationScore) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ContentID
	}
	return out
}

func catalog() []*core.ContentItem {
	return []*core.ContentItem{
		{ID: "e1", Title: "Tax talk", Type: core.ContentTypeEpisode, Categories: []string{"tax"}},
		{ID: "i1", Title: "Crypto notes", Type: core.ContentTypeInsight, Categories: []string{"crypto"}},
		{ID: "r1", Title: "Tax report", Type: core.ContentTypeReport, Categories: []string{"tax"}},
	}
}

func TestFilterNode_ExcludeAndViewed(t *testing.T) {
	rctx := core.NewRecommendContext("a")
	rctx.User = core.NewUserProfile("u1")
	rctx.User.ViewedContentIDs = []string{"c"}
	rctx.User.Seal()

	node := &FilterNode{Filters: []Filter{NewExcludeFilter("d"), &ViewedFilter{}}}
	got, err := node.Process(context.Background(), rctx, candidates("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "e"}, ids(got))
}

func TestViewedFilter_NoProfile(t *testing.T) {
	node := &FilterNode{Filters: []Filter{&ViewedFilter{}}}
	got, err := node.Process(context.Background(), core.NewRecommendContext(), candidates("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestTypeFilter(t *testing.T) {
	h := holderWith(t, catalog()...)
	rctx := core.NewRecommendContext()
	rctx.Types = []core.ContentType{core.ContentTypeReport, core.ContentTypeEpisode}

	node := &FilterNode{Filters: []Filter{&TypeFilter{Index: h}}}
	got, err := node.Process(context.Background(), rctx, candidates("e1", "i1", "r1", "unknown"))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "r1"}, ids(got))

	// 没有类型限定时全部保留
	got, err = node.Process(context.Background(), core.NewRecommendContext(), candidates("e1", "unknown"))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "unknown"}, ids(got))
}

func TestExprFilter(t *testing.T) {
	h := holderWith(t, catalog()...)
	rctx := core.NewRecommendContext()
	rctx.Filter = `"tax" in item.categories`

	node := &FilterNode{Filters: []Filter{&ExprFilter{Index: h}}}
	got, err := node.Process(context.Background(), rctx, candidates("e1", "i1", "r1", "unknown"))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "r1"}, ids(got))

	static := &FilterNode{Filters: []Filter{&ExprFilter{Expr: `item.type == "insight"`, Index: h}}}
	got, err = static.Process(context.Background(), core.NewRecommendContext(), candidates("e1", "i1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, ids(got))
}

func TestExprFilter_UsesEnrichedContent(t *testing.T) {
	c := core.NewRecommendationScore("x")
	c.Content = &core.ContentItem{ID: "x", Type: core.ContentTypeReport}
	f := &ExprFilter{Expr: `item.type == "report"`}

	drop, err := f.ShouldFilter(context.Background(), core.NewRecommendContext(), c)
	require.NoError(t, err)
	assert.False(t, drop)
}

func TestExprFilter_InvalidExpressionIsSkipped(t *testing.T) {
	rctx := core.NewRecommendContext()
	rctx.Filter = `item.type ==`
	node := &FilterNode{Filters: []Filter{&ExprFilter{}}}
	got, err := node.Process(context.Background(), rctx, candidates("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}
