package rerank

import (
	"context"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/pipeline"
)

// TopNNode 是 Top-N 截断节点，放在过滤之后、富化之前，保证结果不超过请求的 limit。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.ContentBased{Index: h}, // 策略
//	        &filter.FilterNode{...},        // 过滤
//	        &rerank.TopNNode{},             // 按 rctx.Limit 截断
//	        &feature.EnrichNode{...},       // 富化
//	    },
//	}
type TopNNode struct {
	// N 要保留的条数；N <= 0 时使用 rctx.Limit，两者都 <= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.Limit
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
