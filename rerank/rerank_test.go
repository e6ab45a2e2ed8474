package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
)

func scored(ids ...string) []*core.RecommendationScore {
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

func TestTopNNode(t *testing.T) {
	rctx := core.NewRecommendContext()
	rctx.Limit = 2

	tests := []struct {
		name string
		node *TopNNode
		rctx *core.RecommendContext
		want []string
	}{
		{"fixed N", &TopNNode{N: 1}, rctx, []string{"a"}},
		{"limit from context", &TopNNode{}, rctx, []string{"a", "b"}},
		{"no limit", &TopNNode{}, core.NewRecommendContext(), []string{"a", "b", "c"}},
		{"N larger than input", &TopNNode{N: 10}, nil, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.node.Process(context.Background(), tt.rctx, scored("a", "b", "c"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestDiversity_MovesRepeatedCategoriesBack(t *testing.T) {
	items := scored("a", "b", "c", "d")
	cats := [][]string{{"Tax"}, {"tax", "finance"}, {"crypto"}, nil}
	for i, it := range items {
		it.Content = &core.ContentItem{ID: it.ContentID, Categories: cats[i]}
	}

	got, err := (&Diversity{}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d", "b"}, ids(got))

	got, err = (&Diversity{MaxPerCategory: 2}).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
}
