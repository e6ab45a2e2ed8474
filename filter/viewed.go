package filter

import (
	"context"

	"github.com/rushteam/contentrec/core"
)

// ViewedFilter 过滤用户已浏览 / 播放过的内容（读取 rctx.User）。
// 没有画像时不过滤任何内容。
type ViewedFilter struct{}

func (f *ViewedFilter) Name() string {
	return "filter.viewed"
}

func (f *ViewedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.RecommendationScore,
) (bool, error) {
	if rctx == nil || rctx.User == nil {
		return false, nil
	}
	return rctx.User.HasViewed(item.ContentID), nil
}
