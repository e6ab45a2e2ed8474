package feature

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/pipeline"
)

// EnrichNode 是内容富化节点：把候选 ID 解析为完整的 ContentItem。
//
//   - Catalog 实现了 core.BatchReader 时一次批量读取，否则逐个 Get
//   - 不存在或未发布的内容静默丢弃
//   - 其他读取错误直接返回，由调用方把整条策略降级为空结果
//
// 输出保持输入顺序。
type EnrichNode struct {
	Catalog core.CatalogReader
	Logger  *zerolog.Logger
}

func (n *EnrichNode) Name() string {
	return "feature.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *EnrichNode) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	if len(items) == 0 || n.Catalog == nil {
		return items, nil
	}

	contents, err := n.resolve(ctx, items)
	if err != nil {
		return nil, err
	}

	out := make([]*core.RecommendationScore, 0, len(items))
	dropped := 0
	for _, it := range items {
		if it == nil {
			continue
		}
		c, ok := contents[it.ContentID]
		if !ok || c == nil || !c.Published {
			dropped++
			continue
		}
		it.Content = c
		out = append(out, it)
	}

	if dropped > 0 && n.Logger != nil {
		n.Logger.Debug().Int("dropped", dropped).Msg("unresolved content dropped")
	}
	return out, nil
}

func (n *EnrichNode) resolve(ctx context.Context, items []*core.RecommendationScore) (map[string]*core.ContentItem, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := seen[it.ContentID]; ok {
			continue
		}
		seen[it.ContentID] = struct{}{}
		ids = append(ids, it.ContentID)
	}

	if batch, ok := n.Catalog.(core.BatchReader); ok {
		contents, err := batch.GetMany(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("enrich %d items: %w", len(ids), err)
		}
		return contents, nil
	}

	contents := make(map[string]*core.ContentItem, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := n.Catalog.Get(ctx, id)
		if err != nil {
			if core.IsContentNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("enrich %s: %w", id, err)
		}
		contents[id] = c
	}
	return contents, nil
}
