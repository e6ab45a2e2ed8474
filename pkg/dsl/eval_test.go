package dsl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/pkg/utils"
)

func TestProgram_Eval(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	item := &core.ContentItem{
		ID:         "r1",
		Title:      "Tax Report 2024",
		Type:       core.ContentTypeReport,
		Categories: []string{"tax", "finance"},
		Difficulty: core.DifficultyAdvanced,
		Published:  true,
		CreatedAt:  now.Add(-10 * 24 * time.Hour),
	}
	score := core.NewRecommendationScore("r1")
	score.Score = 0.75
	score.PutLabel(utils.LabelRecallSource, utils.Label{Value: "trending", Source: "recall"})
	rctx := core.NewRecommendContext()
	rctx.UserID = "u1"
	rctx.Now = now

	tests := []struct {
		expr string
		want bool
	}{
		{`item.type == "report" && "tax" in item.categories`, true},
		{`"crypto" in item.categories`, false},
		{`item.tags.size() == 0`, true},
		{`item.score > 0.5`, true},
		{`item.age_days <= 7.0`, false},
		{`label.recall_source == "trending"`, true},
		{`rctx.user_id == "u1" && item.difficulty == "advanced"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := p.Eval(score, item, rctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_InvalidExpression(t *testing.T) {
	_, err := Compile(`item.type ==`)
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
}

func TestCompile_Cached(t *testing.T) {
	a, err := Compile(`item.score > 0.1`)
	require.NoError(t, err)
	b, err := Compile(`item.score > 0.1`)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, `item.score > 0.1`, a.String())
}

func TestProgram_NonBoolean(t *testing.T) {
	p, err := Compile(`item.title`)
	require.NoError(t, err)
	_, err = p.Eval(nil, &core.ContentItem{Title: "x"}, nil)
	assert.Error(t, err)
}
