package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/contentrec/core"
)

// Pipeline 把一次策略执行拆成可组合的 Node 链：
// recall → filter → rerank(top-N) → postprocess(enrich)。
type Pipeline struct {
	Nodes []Node
}

// Append 返回追加了 nodes 的新 Pipeline，原 Pipeline 不变。
func (p *Pipeline) Append(nodes ...Node) *Pipeline {
	out := make([]Node, 0, len(p.Nodes)+len(nodes))
	out = append(out, p.Nodes...)
	out = append(out, nodes...)
	return &Pipeline{Nodes: out}
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
