// Package contentrec 是一个内容推荐引擎：基于内容相似度、用户画像与热度三种策略，
// 为节目、文章洞察与报告生成带解释的推荐列表。
//
// 设计要点：
// - Pipeline-first: 每个策略是一条 Node 链（策略 → 过滤 → 截断 → 富化）
// - Snapshot-first: 相似度索引整体构建后原子替换，读路径无锁
// - Degrade, don't fail: 存储故障只让对应策略返回空结果与 Cause，不影响其他策略
//
// 入口见 engine.New，配置与存储装配见 config 包，命令行见 cmd/contentrec。
package contentrec

import (
	"github.com/rushteam/contentrec/engine"
	"github.com/rushteam/contentrec/pipeline"
)

// 轻量 facade：便于直接 import "contentrec" 使用核心抽象。
type (
	Engine   = engine.Engine
	Request  = engine.Request
	Response = engine.Response
	Result   = engine.Result
	Option   = engine.Option
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind
)

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

// New 等价于 engine.New。
var New = engine.New
