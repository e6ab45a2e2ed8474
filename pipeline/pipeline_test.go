package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
)

type appendNode struct {
	id  string
	err error
}

func (n *appendNode) Name() string { return "append." + n.id }
func (n *appendNode) Kind() Kind   { return KindRecall }

func (n *appendNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewRecommendationScore(n.id)), nil
}

func ids(items []*core.RecommendationScore) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ContentID
	}
	return out
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{Nodes: []Node{&appendNode{id: "a"}, &appendNode{id: "b"}}}
	got, err := p.Run(context.Background(), core.NewRecommendContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	extended := p.Append(&appendNode{id: "c"})
	assert.Len(t, p.Nodes, 2)
	got, err = extended.Run(context.Background(), core.NewRecommendContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestPipeline_RunError(t *testing.T) {
	boom := errors.New("boom")
	p := &Pipeline{Nodes: []Node{&appendNode{id: "a"}, &appendNode{id: "b", err: boom}}}
	_, err := p.Run(context.Background(), core.NewRecommendContext(), nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "append.b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, core.NewRecommendContext(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildNodes(t *testing.T) {
	f := NewNodeFactory()
	f.Register("append", func(cfg map[string]interface{}) (Node, error) {
		id, _ := cfg["id"].(string)
		if id == "" {
			return nil, errors.New("id is required")
		}
		return &appendNode{id: id}, nil
	})

	nodes, err := BuildNodes([]NodeConfig{
		{Type: "append", Config: map[string]interface{}{"id": "x"}},
		{Type: "append", Config: map[string]interface{}{"id": "y"}},
	}, f)
	require.NoError(t, err)
	got, err := (&Pipeline{Nodes: nodes}).Run(context.Background(), core.NewRecommendContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ids(got))

	_, err = BuildNodes([]NodeConfig{{Type: "append"}}, f)
	assert.ErrorContains(t, err, "id is required")

	_, err = BuildNodes([]NodeConfig{{Type: "rank.lr"}}, f)
	assert.ErrorContains(t, err, "unknown node type")
	assert.Equal(t, []string{"append"}, f.Types())
}
