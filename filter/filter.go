// Package filter 提供策略候选的过滤器：调用方排除、已浏览、内容类型与 CEL 表达式。
package filter

import (
	"context"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
)

// Filter 是过滤器的抽象接口，用于判断一个候选是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断候选是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.RecommendationScore) (bool, error)
}

// contentOf 返回候选对应的内容：已富化时直接使用，否则从索引快照中查找。
func contentOf(h *index.Holder, item *core.RecommendationScore) (*core.ContentItem, bool) {
	if item.Content != nil {
		return item.Content, true
	}
	if h == nil {
		return nil, false
	}
	return h.Current().Item(item.ContentID)
}
