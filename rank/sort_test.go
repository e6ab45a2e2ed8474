package rank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
)

func TestSortNode_StableByScore(t *testing.T) {
	mk := func(id string, score float64) *core.RecommendationScore {
		s := core.NewRecommendationScore(id)
		s.Score = score
		return s
	}
	in := []*core.RecommendationScore{mk("a", 0.2), nil, mk("b", 0.9), mk("c", 0.2), mk("d", 0.5)}

	got, err := (&SortNode{}).Process(context.Background(), nil, in)
	require.NoError(t, err)

	var order []string
	for _, it := range got {
		order = append(order, it.ContentID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, order)
}
