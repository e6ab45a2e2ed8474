package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该候选就会被过滤掉。
// 过滤器出错时记录日志并跳过该过滤器，不中断流程。
type FilterNode struct {
	Filters []Filter
	Logger  *zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.RecommendationScore, 0, len(items))
	filtered := make(map[string]int)

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				if n.Logger != nil {
					n.Logger.Debug().Err(err).Str("filter", f.Name()).Str("content_id", item.ContentID).Msg("filter error, skipped")
				}
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered[reason]++
			continue
		}
		out = append(out, item)
	}

	if n.Logger != nil && len(filtered) > 0 {
		ev := n.Logger.Debug().Int("in", len(items)).Int("out", len(out))
		for name, c := range filtered {
			ev = ev.Int(name, c)
		}
		ev.Msg("filtered candidates")
	}
	return out, nil
}
