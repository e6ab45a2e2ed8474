package recall

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/utils"
)

// 合并策略
const (
	MergeFirst    = "first"    // 按 ID 去重，保留第一个出现的（默认）
	MergePriority = "priority" // 按 ID 去重，保留优先级更高（Sources 中更靠前）的
	MergeUnion    = "union"    // 保留全部结果，不去重
	MergeScore    = "score"    // 按 ID 去重，保留分数更高的；调用方随后按分数排序（rank.SortNode）
)

// Result 是单个策略在一次 fan-out 中的执行结果。
// Err 非空时 Items 为空：策略失败不会中断其他策略。
type Result struct {
	Source   string
	Priority int
	Items    []*core.RecommendationScore
	Err      error
	Elapsed  time.Duration
}

// Fanout 是一个 Recall Node：并发执行多个策略，并合并结果。
// 支持超时、限流、优先级合并策略。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个策略的超时时间，0 表示不限
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // 合并策略：first / union / priority（优先级按 Sources 顺序）
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	return n.Merge(n.Run(ctx, rctx)), nil
}

// Run 并发执行全部策略，所有策略结束后返回，结果顺序与 Sources 一致。
// 单个策略的错误、超时或 panic 只记录在对应 Result 中。
func (n *Fanout) Run(ctx context.Context, rctx *core.RecommendContext) []Result {
	results := make([]Result, len(n.Sources))
	if len(n.Sources) == 0 {
		return results
	}

	// 不使用 errgroup.WithContext：一个策略失败不能取消其他策略
	var eg errgroup.Group
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		i, s := i, src
		eg.Go(func() error {
			results[i] = n.runOne(ctx, rctx, s, i)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (n *Fanout) runOne(ctx context.Context, rctx *core.RecommendContext, s Source, priority int) (r Result) {
	r = Result{Source: s.Name(), Priority: priority}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.Items = nil
			r.Err = core.NewDomainError(core.ModuleEngine, core.ErrorCodeInternalError,
				"strategy "+s.Name()+" panicked")
		}
		r.Elapsed = time.Since(start)
	}()

	// 超时控制
	recallCtx := ctx
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	items, err := s.Recall(recallCtx, rctx)
	if err == nil {
		err = recallCtx.Err()
	}
	if err != nil {
		r.Err = err
		return r
	}

	// 记录召回来源 label，方便 explain / 观测
	for _, it := range items {
		it.PutLabel(utils.LabelRecallSource, utils.Label{Value: s.Name(), Source: "recall"})
		it.PutLabel(utils.LabelRecallPriority, utils.Label{Value: strconv.Itoa(priority), Source: "recall"})
	}
	r.Items = items
	return r
}

// Merge 按 MergeStrategy 合并多个策略的结果，输出顺序为策略顺序、策略内原有顺序。
func (n *Fanout) Merge(results []Result) []*core.RecommendationScore {
	all := make([]*core.RecommendationScore, 0)
	for _, r := range results {
		all = append(all, r.Items...)
	}
	switch n.MergeStrategy {
	case MergePriority:
		return n.mergeByPriority(all)
	case MergeUnion:
		return all
	case MergeScore:
		return n.mergeByScore(all)
	default:
		return n.mergeFirst(all)
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的，后出现的 label 合并到保留项上。
func (n *Fanout) mergeFirst(all []*core.RecommendationScore) []*core.RecommendationScore {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.RecommendationScore, len(all))
	out := make([]*core.RecommendationScore, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ContentID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ContentID] = it
		out = append(out, it)
	}
	return out
}

// mergeByPriority 相同 ID 时保留优先级更高的（recall_priority 更小），位置取保留项所在位置。
func (n *Fanout) mergeByPriority(all []*core.RecommendationScore) []*core.RecommendationScore {
	if !n.Dedup {
		return all
	}
	pos := make(map[string]int, len(all))
	out := make([]*core.RecommendationScore, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		i, exists := pos[it.ContentID]
		if !exists {
			pos[it.ContentID] = len(out)
			out = append(out, it)
			continue
		}
		old := out[i]
		if priorityOf(it) < priorityOf(old) {
			for k, v := range old.Labels {
				it.PutLabel(k, v)
			}
			out[i] = it
			continue
		}
		for k, v := range it.Labels {
			old.PutLabel(k, v)
		}
	}
	return out
}

// mergeByScore 相同 ID 时保留分数更高的，分数相同保留先出现的。
func (n *Fanout) mergeByScore(all []*core.RecommendationScore) []*core.RecommendationScore {
	pos := make(map[string]int, len(all))
	out := make([]*core.RecommendationScore, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		i, exists := pos[it.ContentID]
		if !exists {
			pos[it.ContentID] = len(out)
			out = append(out, it)
			continue
		}
		old := out[i]
		if it.Score > old.Score {
			for k, v := range old.Labels {
				it.PutLabel(k, v)
			}
			out[i] = it
			continue
		}
		for k, v := range it.Labels {
			old.PutLabel(k, v)
		}
	}
	return out
}

// priorityOf 读取 recall_priority，合并过的 label（"0|2"）取第一个值。
func priorityOf(it *core.RecommendationScore) int {
	v, _, _ := strings.Cut(it.Label(utils.LabelRecallPriority), "|")
	p, err := strconv.Atoi(v)
	if err != nil {
		return math.MaxInt
	}
	return p
}

// 确保策略实现 Source 与 Node 接口
var (
	_ Source        = (*ContentBased)(nil)
	_ Source        = (*Personalized)(nil)
	_ Source        = (*Trending)(nil)
	_ pipeline.Node = (*ContentBased)(nil)
	_ pipeline.Node = (*Personalized)(nil)
	_ pipeline.Node = (*Trending)(nil)
	_ pipeline.Node = (*Fanout)(nil)
)
