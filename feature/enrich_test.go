package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
)

type singleReader struct {
	items map[string]*core.ContentItem
	err   error
	calls int
}

func (r *singleReader) ListPublished(context.Context, ...core.ContentType) ([]*core.ContentItem, error) {
	return nil, nil
}

func (r *singleReader) Get(_ context.Context, id string) (*core.ContentItem, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	it, ok := r.items[id]
	if !ok || !it.Published {
		return nil, core.ErrContentNotFound
	}
	return it, nil
}

type batchReader struct {
	singleReader
	batches int
}

func (r *batchReader) GetMany(_ context.Context, ids []string) (map[string]*core.ContentItem, error) {
	r.batches++
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]*core.ContentItem)
	for _, id := range ids {
		if it, ok := r.items[id]; ok && it.Published {
			out[id] = it
		}
	}
	return out, nil
}

func fixtures() map[string]*core.ContentItem {
	return map[string]*core.ContentItem{
		"a":     {ID: "a", Title: "A", Published: true},
		"b":     {ID: "b", Title: "B", Published: true},
		"draft": {ID: "draft", Title: "Draft"},
	}
}

func scores(ids ...string) []*core.RecommendationScore {
	out := make([]*core.RecommendationScore, len(ids))
	for i, id := range ids {
		out[i] = core.NewRecommendationScore(id)
	}
	return out
}

func TestEnrichNode_DropsUnresolved(t *testing.T) {
	for name, reader := range map[string]core.CatalogReader{
		"single": &singleReader{items: fixtures()},
		"batch":  &batchReader{singleReader: singleReader{items: fixtures()}},
	} {
		t.Run(name, func(t *testing.T) {
			n := &EnrichNode{Catalog: reader}
			got, err := n.Process(context.Background(), nil, scores("b", "missing", "draft", "a"))
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "b", got[0].ContentID)
			assert.Equal(t, "B", got[0].Content.Title)
			assert.Equal(t, "a", got[1].ContentID)
		})
	}
}

func TestEnrichNode_PrefersBatch(t *testing.T) {
	r := &batchReader{singleReader: singleReader{items: fixtures()}}
	_, err := (&EnrichNode{Catalog: r}).Process(context.Background(), nil, scores("a", "b", "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.batches)
	assert.Equal(t, 0, r.calls)
}

func TestEnrichNode_StoreFailure(t *testing.T) {
	cause := core.CatalogUnavailable(errors.New("connection reset"))
	for name, reader := range map[string]core.CatalogReader{
		"single": &singleReader{err: cause},
		"batch":  &batchReader{singleReader: singleReader{err: cause}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := (&EnrichNode{Catalog: reader}).Process(context.Background(), nil, scores("a"))
			require.Error(t, err)
			assert.True(t, core.IsUnavailable(err))
		})
	}
}

func TestEnrichNode_Empty(t *testing.T) {
	got, err := (&EnrichNode{Catalog: &singleReader{}}).Process(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
