package pipeline

import (
	"context"

	"github.com/rushteam/contentrec/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：策略生成候选
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选
	KindRank        Kind = "rank"        // 排序阶段：按分数排序
	KindReRank      Kind = "rerank"      // 重排阶段：截断 / 业务调优
	KindPostProcess Kind = "postprocess" // 后处理阶段：内容富化
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，方便策略生成、过滤剔除、截断、富化等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.RecommendationScore,
	) ([]*core.RecommendationScore, error)
}
