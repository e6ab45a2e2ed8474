// Package engine 组装相似度索引、用户画像与三种推荐策略，对外提供推荐 API。
//
// 错误约定：返回的 error 只表示调用方错误（负数 limit、未知窗口、非法过滤表达式）；
// 数据缺失得到空 Result；存储故障得到带 Cause 的空 Result，并记录告警日志。
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/feature"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/logging"
	"github.com/rushteam/contentrec/pkg/metrics"
	"github.com/rushteam/contentrec/profile"
	"github.com/rushteam/contentrec/recall"
)

// NodeBuilder 根据索引构建追加在每条策略链路上的额外 Node（例如配置中的 filter.expr）。
type NodeBuilder func(h *index.Holder) ([]pipeline.Node, error)

type options struct {
	similarity      core.SimilarityWeights
	personalized    core.PersonalizedWeights
	extractor       feature.TagExtractor
	topK            int
	buildWorkers    int
	lookback        time.Duration
	strategyTimeout time.Duration
	maxConcurrent   int
	nodes           NodeBuilder
	now             func() time.Time
	logger          zerolog.Logger
	metrics         *metrics.Metrics
}

// Option 引擎配置选项
type Option func(*options)

// WithSimilarityWeights 设置索引的相似度权重表
func WithSimilarityWeights(w core.SimilarityWeights) Option {
	return func(o *options) { o.similarity = w }
}

// WithPersonalizedWeights 设置个性化策略的权重表
func WithPersonalizedWeights(w core.PersonalizedWeights) Option {
	return func(o *options) { o.personalized = w }
}

// WithTagExtractor 设置标签抽取器
func WithTagExtractor(e feature.TagExtractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithNeighbors 设置每条内容保留的邻居数 K
func WithNeighbors(k int) Option {
	return func(o *options) { o.topK = k }
}

// WithBuildWorkers 设置索引构建并发度
func WithBuildWorkers(n int) Option {
	return func(o *options) { o.buildWorkers = n }
}

// WithLookback 设置画像回看窗口
func WithLookback(d time.Duration) Option {
	return func(o *options) { o.lookback = d }
}

// WithStrategyTimeout 设置单个策略的超时，0 表示不限
func WithStrategyTimeout(d time.Duration) Option {
	return func(o *options) { o.strategyTimeout = d }
}

// WithMaxConcurrent 设置多策略请求的最大并发数，0 表示不限
func WithMaxConcurrent(n int) Option {
	return func(o *options) { o.maxConcurrent = n }
}

// WithNodes 设置额外 Node 的构建函数
func WithNodes(b NodeBuilder) Option {
	return func(o *options) { o.nodes = b }
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Engine 是推荐引擎。索引与画像缓存归属于 Engine 实例，互不共享。
type Engine struct {
	catalog core.CatalogReader
	events  core.EventReader

	index    *index.Holder
	profiles *profile.Cache

	contentBased *recall.ContentBased
	personalized *recall.Personalized
	trending     *recall.Trending
	enrich       *feature.EnrichNode
	extra        []pipeline.Node

	strategyTimeout time.Duration
	maxConcurrent   int
	now             func() time.Time
	logger          zerolog.Logger
	metrics         *metrics.Metrics
}

// New 创建引擎。索引在 Start 之前为空。
func New(catalog core.CatalogReader, events core.EventReader, opts ...Option) (*Engine, error) {
	o := &options{
		similarity:   core.DefaultSimilarityWeights(),
		personalized: core.DefaultPersonalizedWeights(),
		extractor:    feature.NewKeywordExtractor(),
		topK:         index.DefaultTopK,
		lookback:     profile.DefaultLookback,
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.similarity.Validate(); err != nil {
		return nil, fmt.Errorf("similarity weights: %w", err)
	}
	if err := o.personalized.Validate(); err != nil {
		return nil, fmt.Errorf("personalized weights: %w", err)
	}

	builder := index.NewBuilder(catalog,
		index.WithTagExtractor(o.extractor),
		index.WithWeights(o.similarity),
		index.WithTopK(o.topK),
		index.WithWorkers(o.buildWorkers),
		index.WithLogger(o.logger),
		index.WithMetrics(o.metrics),
	)
	holder := index.NewHolder(builder)

	profiles := profile.NewCache(profile.NewBuilder(events,
		profile.WithIndex(holder),
		profile.WithLookback(o.lookback),
		profile.WithClock(o.now),
		profile.WithLogger(o.logger),
		profile.WithMetrics(o.metrics),
	))

	logger := logging.Component(o.logger, "engine")
	e := &Engine{
		catalog:         catalog,
		events:          events,
		index:           holder,
		profiles:        profiles,
		contentBased:    &recall.ContentBased{Index: holder},
		personalized:    &recall.Personalized{Index: holder, Weights: o.personalized},
		trending:        &recall.Trending{Events: events, Index: holder},
		enrich:          &feature.EnrichNode{Catalog: catalog, Logger: &logger},
		strategyTimeout: o.strategyTimeout,
		maxConcurrent:   o.maxConcurrent,
		now:             o.now,
		logger:          logger,
		metrics:         o.metrics,
	}

	if o.nodes != nil {
		extra, err := o.nodes(holder)
		if err != nil {
			return nil, fmt.Errorf("build pipeline nodes: %w", err)
		}
		e.extra = extra
	}
	return e, nil
}

// Start 构建首个索引。失败时引擎仍可使用（空索引），错误返回给调用方决定是否退出。
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.RebuildIndex(ctx)
	return err
}

// RebuildIndex 全量重建索引并原子替换；失败时保留旧索引。
func (e *Engine) RebuildIndex(ctx context.Context) (index.Stats, error) {
	x, err := e.index.Rebuild(ctx)
	if err != nil {
		return e.index.Current().Stats(), core.WrapDomainError(core.ModuleIndex, core.ErrorCodeUnavailable, "index: rebuild failed", err)
	}
	return x.Stats(), nil
}

// IndexStats 返回当前索引概况。
func (e *Engine) IndexStats() index.Stats {
	return e.index.Current().Stats()
}

// Profile 返回用户画像（缓存或按需构建）。返回的 error 表示本次构建降级。
func (e *Engine) Profile(ctx context.Context, userID string) (*core.UserProfile, error) {
	return e.profiles.Get(ctx, userID)
}

// RebuildProfile 重新构建单个用户的画像。
func (e *Engine) RebuildProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	return e.profiles.Rebuild(ctx, userID)
}

// InvalidateProfile 丢弃单个用户的缓存画像，下次请求时重建。
func (e *Engine) InvalidateProfile(userID string) {
	e.profiles.Invalidate(userID)
}

// PurgeProfiles 丢弃所有用户的缓存画像。
func (e *Engine) PurgeProfiles() {
	e.profiles.Purge()
}
