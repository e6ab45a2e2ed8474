package config

import (
	"fmt"
	"sort"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/filter"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/conv"
	"github.com/rushteam/contentrec/pkg/dsl"
	"github.com/rushteam/contentrec/rank"
	"github.com/rushteam/contentrec/rerank"
)

// nodeBuilders 是配置可用的 Node 类型。Node 需要读取索引快照时从 h 获取。
var nodeBuilders = map[string]func(h *index.Holder, cfg map[string]any) (pipeline.Node, error){
	"filter.expr":      buildExprFilterNode,
	"filter.type":      buildTypeFilterNode,
	"filter.exclude":   buildExcludeFilterNode,
	"rank.sort":        buildSortNode,
	"rerank.diversity": buildDiversityNode,
	"rerank.topn":      buildTopNNode,
}

// NewNodeFactory 返回绑定到索引 h 的 NodeFactory，包含所有内置 Node 类型。
func NewNodeFactory(h *index.Holder) *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()
	for typeName, build := range nodeBuilders {
		build := build
		f.Register(typeName, func(cfg map[string]any) (pipeline.Node, error) {
			return build(h, cfg)
		})
	}
	return f
}

// SupportedTypes 返回可配置的 Node 类型列表（排序），用于错误提示。
func SupportedTypes() []string {
	types := make([]string, 0, len(nodeBuilders))
	for t := range nodeBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateNodes 校验 Node 类型均已支持且各自配置可以构建。
func ValidateNodes(configs []pipeline.NodeConfig) error {
	for i, nc := range configs {
		build, ok := nodeBuilders[nc.Type]
		if !ok {
			return fmt.Errorf("pipeline[%d]: unsupported node type %q (supported: %v)", i, nc.Type, SupportedTypes())
		}
		if _, err := build(nil, nc.Config); err != nil {
			return fmt.Errorf("pipeline[%d] %s: %w", i, nc.Type, err)
		}
	}
	return nil
}

func buildExprFilterNode(h *index.Holder, cfg map[string]any) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("expr is required")
	}
	if _, err := dsl.Compile(expr); err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{&filter.ExprFilter{Expr: expr, Index: h}}}, nil
}

func buildTypeFilterNode(h *index.Holder, cfg map[string]any) (pipeline.Node, error) {
	names := conv.SliceAnyToString(cfg["types"])
	if len(names) == 0 {
		return nil, fmt.Errorf("types is required")
	}
	types := make([]core.ContentType, 0, len(names))
	for _, name := range names {
		t := core.ContentType(name)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown content type %q", name)
		}
		types = append(types, t)
	}
	return &filter.FilterNode{Filters: []filter.Filter{&filter.TypeFilter{Types: types, Index: h}}}, nil
}

func buildExcludeFilterNode(_ *index.Holder, cfg map[string]any) (pipeline.Node, error) {
	ids := conv.SliceAnyToString(cfg["ids"])
	return &filter.FilterNode{Filters: []filter.Filter{filter.NewExcludeFilter(ids...)}}, nil
}

func buildSortNode(_ *index.Holder, _ map[string]any) (pipeline.Node, error) {
	return &rank.SortNode{}, nil
}

func buildDiversityNode(h *index.Holder, cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "max_per_category", 1)
	if n <= 0 {
		return nil, fmt.Errorf("max_per_category must be positive: %d", n)
	}
	return &rerank.Diversity{MaxPerCategory: int(n), Index: h}, nil
}

func buildTopNNode(_ *index.Holder, cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("n must not be negative: %d", n)
	}
	return &rerank.TopNNode{N: int(n)}, nil
}
