package recall

import (
	"context"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
)

// ReasonSimilarContent 是内容相似策略的解释文案。
const ReasonSimilarContent = "Similar content."

// ContentBased 是“与此内容相似”策略：直接读取相似度索引中种子内容的近邻。
// ContentBased 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type ContentBased struct {
	Index *index.Holder
}

func (r *ContentBased) Name() string        { return StrategyContentBased }
func (r *ContentBased) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *ContentBased) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	return r.Recall(ctx, rctx)
}

// Recall 返回种子内容的近邻（分数降序），种子不在索引中时返回空。
// 调用方排除的内容与不满足类型限定的内容会被跳过。
func (r *ContentBased) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.RecommendationScore, error) {
	if r.Index == nil || rctx == nil || rctx.ContentID == "" {
		return []*core.RecommendationScore{}, nil
	}

	x := r.Index.Current()
	neighbors := x.Neighbors(rctx.ContentID)
	out := make([]*core.RecommendationScore, 0, len(neighbors))
	for _, n := range neighbors {
		if n.ID == rctx.ContentID || rctx.IsExcluded(n.ID) {
			continue
		}
		if len(rctx.Types) > 0 {
			item, ok := x.Item(n.ID)
			if !ok || !rctx.AllowsType(item.Type) {
				continue
			}
		}
		s := core.NewRecommendationScore(n.ID)
		s.Score = n.Score
		s.AddReason(ReasonSimilarContent)
		out = append(out, s)
	}
	return out, nil
}
