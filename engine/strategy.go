package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/filter"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/dsl"
	"github.com/rushteam/contentrec/pkg/metrics"
	"github.com/rushteam/contentrec/rank"
	"github.com/rushteam/contentrec/recall"
	"github.com/rushteam/contentrec/rerank"
)

// ContentBased 返回与 contentID 相似的内容。contentID 不在索引中时返回空结果。
func (e *Engine) ContentBased(ctx context.Context, contentID string, limit int) (*Result, error) {
	return e.single(ctx, Request{
		Strategies: []string{recall.StrategyContentBased},
		ContentID:  contentID,
		Limit:      limit,
	})
}

// Personalized 返回适合 userID 的内容，结果不包含 excludeIDs 与用户已浏览的内容。
func (e *Engine) Personalized(ctx context.Context, userID string, limit int, excludeIDs []string) (*Result, error) {
	return e.single(ctx, Request{
		Strategies: []string{recall.StrategyPersonalized},
		UserID:     userID,
		Limit:      limit,
		ExcludeIDs: excludeIDs,
	})
}

// Trending 返回窗口（day / week / month）内互动最多的内容。
func (e *Engine) Trending(ctx context.Context, window string, limit int) (*Result, error) {
	return e.single(ctx, Request{
		Strategies: []string{recall.StrategyTrending},
		Window:     window,
		Limit:      limit,
	})
}

func (e *Engine) single(ctx context.Context, req Request) (*Result, error) {
	resp, err := e.Recommend(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Results[0], nil
}

// Recommend 并发执行请求中的策略，全部结束后汇总。
// 单个策略失败或超时只影响它自己的 Result，不会取消其他策略。
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	strategies, err := e.validate(&req)
	if err != nil {
		e.logger.Debug().Err(err).Msg("invalid recommend request")
		for _, s := range strategies {
			e.metrics.ObserveStrategy(s, metrics.OutcomeInvalid, 0)
		}
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	resp := &Response{
		RequestID: req.RequestID,
		Results:   make([]*Result, 0, len(strategies)),
		Merged:    []*core.RecommendationScore{},
	}
	if req.Limit == 0 {
		for _, s := range strategies {
			resp.Results = append(resp.Results, &Result{Strategy: s, Items: []*core.RecommendationScore{}, RequestID: req.RequestID})
			e.metrics.ObserveStrategy(s, metrics.OutcomeEmpty, 0)
		}
		return resp, nil
	}

	rctx := core.NewRecommendContext(req.ExcludeIDs...)
	rctx.RequestID = req.RequestID
	rctx.UserID = req.UserID
	rctx.ContentID = req.ContentID
	rctx.Window = req.Window
	rctx.Types = req.Types
	rctx.Filter = req.Filter
	rctx.Limit = req.Limit
	rctx.Now = e.now()

	sources := make([]recall.Source, len(strategies))
	for i, s := range strategies {
		sources[i] = e.source(s)
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         true,
		Timeout:       e.strategyTimeout,
		MaxConcurrent: e.maxConcurrent,
		MergeStrategy: req.Merge,
	}
	raw := fanout.Run(ctx, rctx)

	for _, r := range raw {
		resp.Results = append(resp.Results, e.finish(req.RequestID, r))
	}
	resp.Merged = e.merge(ctx, rctx, fanout, raw)
	return resp, nil
}

// validate 校验请求并返回要执行的策略（去重，保持顺序）。
func (e *Engine) validate(req *Request) ([]string, error) {
	strategies := req.Strategies
	if len(strategies) == 0 {
		if req.ContentID != "" {
			strategies = append(strategies, recall.StrategyContentBased)
		}
		if req.UserID != "" {
			strategies = append(strategies, recall.StrategyPersonalized)
		}
		strategies = append(strategies, recall.StrategyTrending)
	}

	seen := make(map[string]struct{}, len(strategies))
	out := make([]string, 0, len(strategies))
	for _, s := range strategies {
		switch s {
		case recall.StrategyContentBased, recall.StrategyPersonalized, recall.StrategyTrending:
		default:
			return nil, invalidInput(fmt.Sprintf("engine: unknown strategy %q", s))
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if req.Limit < 0 {
		return out, core.ErrInvalidLimit
	}
	if _, ok := seen[recall.StrategyTrending]; ok {
		if _, err := recall.ParseWindow(req.Window); err != nil {
			return out, err
		}
	}
	for _, t := range req.Types {
		if !t.Valid() {
			return out, invalidInput(fmt.Sprintf("engine: unknown content type %q", t))
		}
	}
	switch req.Merge {
	case "", recall.MergeFirst, recall.MergePriority, recall.MergeUnion, recall.MergeScore:
	default:
		return out, invalidInput(fmt.Sprintf("engine: unknown merge strategy %q", req.Merge))
	}
	if req.Filter != "" {
		if _, err := dsl.Compile(req.Filter); err != nil {
			return out, err
		}
	}
	return out, nil
}

func invalidInput(msg string) error {
	return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, msg)
}

// source 组装单个策略的完整链路：策略 → 过滤 → 额外 Node → 截断 → 富化。
func (e *Engine) source(strategy string) recall.Source {
	filters := []filter.Filter{filter.NewExcludeFilter()}
	var head pipeline.Node
	switch strategy {
	case recall.StrategyContentBased:
		head = e.contentBased
	case recall.StrategyPersonalized:
		head = e.personalized
		filters = append(filters, &filter.ViewedFilter{})
	default:
		head = e.trending
	}
	filters = append(filters,
		&filter.TypeFilter{Index: e.index},
		&filter.ExprFilter{Index: e.index},
	)

	nodes := make([]pipeline.Node, 0, 5+len(e.extra))
	nodes = append(nodes, head, &filter.FilterNode{Filters: filters, Logger: &e.logger})
	nodes = append(nodes, e.extra...)
	nodes = append(nodes, &rerank.TopNNode{}, e.enrich)

	src := &pipelineSource{name: strategy, pipeline: &pipeline.Pipeline{Nodes: nodes}}
	if strategy == recall.StrategyPersonalized {
		src.prepare = e.withProfile
	}
	return src
}

// withProfile 为个性化策略解析用户画像。画像构建降级时整条策略降级。
func (e *Engine) withProfile(ctx context.Context, rctx *core.RecommendContext) (*core.RecommendContext, error) {
	user, err := e.profiles.Get(ctx, rctx.UserID)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}
	scoped := *rctx
	scoped.User = user
	return &scoped, nil
}

// finish 把 fan-out 结果转为 Result，并记录日志与指标。
func (e *Engine) finish(requestID string, r recall.Result) *Result {
	res := &Result{
		Strategy:  r.Source,
		Items:     r.Items,
		Cause:     r.Err,
		Elapsed:   r.Elapsed,
		RequestID: requestID,
	}
	if res.Items == nil || res.Cause != nil {
		res.Items = []*core.RecommendationScore{}
	}

	outcome := metrics.OutcomeOK
	switch {
	case res.Cause != nil:
		outcome = metrics.OutcomeDegraded
		e.logger.Warn().
			Err(res.Cause).
			Str("strategy", res.Strategy).
			Str("request_id", requestID).
			Dur("elapsed", res.Elapsed).
			Msg("strategy degraded to empty result")
	case len(res.Items) == 0:
		outcome = metrics.OutcomeEmpty
	}
	e.metrics.ObserveStrategy(res.Strategy, outcome, res.Elapsed)
	return res
}

// merge 合并各策略结果（复制后合并，不影响逐策略结果）并截断到 limit。
func (e *Engine) merge(ctx context.Context, rctx *core.RecommendContext, fanout *recall.Fanout, raw []recall.Result) []*core.RecommendationScore {
	copies := make([]recall.Result, len(raw))
	for i, r := range raw {
		copies[i] = r
		if r.Err != nil {
			copies[i].Items = nil
			continue
		}
		copies[i].Items = make([]*core.RecommendationScore, len(r.Items))
		for j, it := range r.Items {
			copies[i].Items[j] = it.Clone()
		}
	}

	p := &pipeline.Pipeline{Nodes: []pipeline.Node{&rerank.TopNNode{}}}
	if fanout.MergeStrategy == recall.MergeScore {
		p.Nodes = append([]pipeline.Node{&rank.SortNode{}}, p.Nodes...)
	}
	merged, err := p.Run(ctx, rctx, fanout.Merge(copies))
	if err != nil {
		e.logger.Warn().Err(err).Str("request_id", rctx.RequestID).Msg("merge results failed")
		return []*core.RecommendationScore{}
	}
	return merged
}

// pipelineSource 把一条策略链路包装成 recall.Source，交给 Fanout 并发执行。
type pipelineSource struct {
	name     string
	pipeline *pipeline.Pipeline
	prepare  func(ctx context.Context, rctx *core.RecommendContext) (*core.RecommendContext, error)
}

func (s *pipelineSource) Name() string { return s.name }

func (s *pipelineSource) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.RecommendationScore, error) {
	if s.prepare != nil {
		scoped, err := s.prepare(ctx, rctx)
		if err != nil {
			return nil, err
		}
		rctx = scoped
	}
	return s.pipeline.Run(ctx, rctx, nil)
}
