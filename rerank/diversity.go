package rerank

import (
	"context"
	"strings"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
)

// Diversity 是按类别打散的重排节点：每个主类别（第一个类别）最多保留 MaxPerCategory 条，
// 其余按原顺序后移到列表末尾，因此不会减少条数。
// 类别来源优先级：已富化的 Content，其次索引快照；无法解析或无类别的候选原位保留。
type Diversity struct {
	MaxPerCategory int // 默认 1
	Index          *index.Holder
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	if len(items) == 0 {
		return items, nil
	}
	limit := n.MaxPerCategory
	if limit <= 0 {
		limit = 1
	}

	var snapshot *index.Index
	if n.Index != nil {
		snapshot = n.Index.Current()
	}

	seen := make(map[string]int, 32)
	out := make([]*core.RecommendationScore, 0, len(items))
	var overflow []*core.RecommendationScore

	for _, it := range items {
		if it == nil {
			continue
		}
		cate := primaryCategory(it, snapshot)
		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] >= limit {
			overflow = append(overflow, it)
			continue
		}
		seen[cate]++
		out = append(out, it)
	}
	return append(out, overflow...), nil
}

func primaryCategory(it *core.RecommendationScore, snapshot *index.Index) string {
	content := it.Content
	if content == nil && snapshot != nil {
		content, _ = snapshot.Item(it.ContentID)
	}
	if content == nil || len(content.Categories) == 0 {
		return ""
	}
	return strings.ToLower(content.Categories[0])
}
