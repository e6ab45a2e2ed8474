package filter

import (
	"context"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
)

// TypeFilter 按内容类型过滤。Types 为空时使用请求级的 rctx.Types；两者都为空时不过滤。
// 无法解析内容（未富化且不在索引快照中）的候选在有类型限定时被过滤。
type TypeFilter struct {
	Types []core.ContentType
	Index *index.Holder
}

func (f *TypeFilter) Name() string {
	return "filter.type"
}

func (f *TypeFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.RecommendationScore,
) (bool, error) {
	types := f.Types
	if len(types) == 0 && rctx != nil {
		types = rctx.Types
	}
	if len(types) == 0 {
		return false, nil
	}
	content, ok := contentOf(f.Index, item)
	if !ok {
		return true, nil
	}
	for _, t := range types {
		if content.Type == t {
			return false, nil
		}
	}
	return true, nil
}
