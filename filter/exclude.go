package filter

import (
	"context"

	"github.com/rushteam/contentrec/core"
)

// ExcludeFilter 过滤调用方排除的内容：请求级的 rctx.Exclude 加上静态的 IDs 列表。
type ExcludeFilter struct {
	// IDs 是静态排除列表（例如下架中的内容），可为空
	IDs []string

	ids map[string]struct{}
}

// NewExcludeFilter 创建排除过滤器。
func NewExcludeFilter(ids ...string) *ExcludeFilter {
	f := &ExcludeFilter{IDs: ids, ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	return f
}

func (f *ExcludeFilter) Name() string {
	return "filter.exclude"
}

func (f *ExcludeFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.RecommendationScore,
) (bool, error) {
	if rctx.IsExcluded(item.ContentID) {
		return true, nil
	}
	if f.ids != nil {
		_, ok := f.ids[item.ContentID]
		return ok, nil
	}
	for _, id := range f.IDs {
		if id == item.ContentID {
			return true, nil
		}
	}
	return false, nil
}
