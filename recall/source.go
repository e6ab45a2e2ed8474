package recall

import (
	"context"

	"github.com/rushteam/contentrec/core"
)

// Source 表示一个可复用的推荐策略（内容相似 / 个性化 / 热门）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
//
// Recall 返回按策略自身规则排好序的全部候选，不做截断；
// 截断由链路末端的 rerank.TopNNode 按 rctx.Limit 完成，保证过滤之后仍能填满 limit。
// 数据缺失返回空列表；只有存储故障等无法完成的情况才返回错误。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.RecommendationScore, error)
}

// 策略名称
const (
	StrategyContentBased = "content_based"
	StrategyPersonalized = "personalized"
	StrategyTrending     = "trending"
)
