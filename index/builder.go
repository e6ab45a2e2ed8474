package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/feature"
	"github.com/rushteam/contentrec/pkg/logging"
	"github.com/rushteam/contentrec/pkg/metrics"
)

// DefaultTopK 是每条内容保留的邻居数。
const DefaultTopK = 10

// Builder 从内容目录全量构建相似度索引。
//
// 计算复杂度 O(n²)：适用于数千量级的目录；更大的目录需要分桶/blocking，不在此实现。
// 每一行（一条源内容的邻居）独立计算，行间并发，结果与并发度无关。
type Builder struct {
	catalog   core.CatalogReader
	extractor feature.TagExtractor
	weights   core.SimilarityWeights
	topK      int
	workers   int
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// BuilderOption 构建器配置选项
type BuilderOption func(*Builder)

// WithTagExtractor 设置标签抽取器，nil 表示不抽取（只使用目录自带 Tags）
func WithTagExtractor(e feature.TagExtractor) BuilderOption {
	return func(b *Builder) { b.extractor = e }
}

// WithWeights 设置相似度权重表
func WithWeights(w core.SimilarityWeights) BuilderOption {
	return func(b *Builder) { b.weights = w }
}

// WithTopK 设置每条内容保留的邻居数
func WithTopK(k int) BuilderOption {
	return func(b *Builder) {
		if k > 0 {
			b.topK = k
		}
	}
}

// WithWorkers 设置并发计算的行数上限，<=0 时使用 GOMAXPROCS
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) { b.workers = n }
}

func WithLogger(l zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logging.Component(l, "index") }
}

func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

func NewBuilder(catalog core.CatalogReader, opts ...BuilderOption) *Builder {
	b := &Builder{
		catalog:   catalog,
		extractor: feature.NewKeywordExtractor(),
		weights:   core.DefaultSimilarityWeights(),
		topK:      DefaultTopK,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	return b
}

// Build 读取全部已发布内容并构建索引。目录读取失败时返回错误，由调用方决定是否保留旧索引。
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	if b.catalog == nil {
		return Empty(), nil
	}
	items, err := b.catalog.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return b.BuildFrom(ctx, items)
}

// BuildFrom 基于给定目录快照构建索引。
func (b *Builder) BuildFrom(ctx context.Context, items []*core.ContentItem) (*Index, error) {
	start := time.Now()

	x := &Index{
		BuiltAt:        start,
		WeightsVersion: b.weights.Version,
		items:          make(map[string]*core.ContentItem, len(items)),
		neighbors:      make(map[string][]Neighbor, len(items)),
	}

	// 1. 归一化：去重、抽取标签
	for _, it := range items {
		if it == nil || it.ID == "" {
			continue
		}
		if _, dup := x.items[it.ID]; dup {
			b.logger.Warn().Str("content_id", it.ID).Msg("duplicate content id in catalog, keeping first")
			continue
		}
		x.items[it.ID] = feature.ApplyTags(b.extractor, it)
		x.ids = append(x.ids, it.ID)
	}
	sort.Strings(x.ids)

	profiles := make([]*profile, len(x.ids))
	for i, id := range x.ids {
		profiles[i] = newProfile(x.items[id])
	}

	// 2. 逐行计算 TopK 邻居
	rows := make([][]Neighbor, len(profiles))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)
	for i := range profiles {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			rows[i] = b.row(profiles, i)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("build similarity rows: %w", err)
	}
	for i, id := range x.ids {
		x.neighbors[id] = rows[i]
	}

	b.logger.Debug().
		Int("items", len(x.ids)).
		Dur("took", time.Since(start)).
		Msg("similarity index built")
	return x, nil
}

// row 计算第 i 条内容的邻居：分数 > 0，按分数降序、ID 升序，截断到 TopK。
func (b *Builder) row(profiles []*profile, i int) []Neighbor {
	src := profiles[i]
	ns := make([]Neighbor, 0, len(profiles))
	for j, dst := range profiles {
		if j == i {
			continue
		}
		s := score(b.weights, src, dst)
		if s <= 0 {
			continue
		}
		ns = append(ns, Neighbor{ID: dst.id, Score: s})
	}
	sortNeighbors(ns)
	if len(ns) > b.topK {
		ns = append(make([]Neighbor, 0, b.topK), ns[:b.topK]...)
	}
	return ns
}
