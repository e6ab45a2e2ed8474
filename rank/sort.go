// Package rank 提供跨策略合并后的排序节点。
package rank

import (
	"context"
	"sort"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/pipeline"
)

// SortNode 按 Score 降序稳定排序，分数相同时保持输入顺序。
// 用于多策略合并（merge=score）之后：各策略内部已有序，跨策略才需要重新排序。
type SortNode struct{}

func (n *SortNode) Name() string        { return "rank.sort" }
func (n *SortNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *SortNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	out := make([]*core.RecommendationScore, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
