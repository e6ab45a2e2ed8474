package filter

import (
	"context"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pkg/dsl"
)

// ExprFilter 是 CEL 表达式过滤器：表达式为 true 的候选保留，false 的被过滤。
//
// Expr 为空时使用请求级的 rctx.Filter；两者都为空时不过滤。
// 求值出错的候选（例如表达式访问了不存在的字段）按不满足条件处理。
type ExprFilter struct {
	Expr  string
	Index *index.Holder
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.RecommendationScore,
) (bool, error) {
	expr := f.Expr
	if expr == "" && rctx != nil {
		expr = rctx.Filter
	}
	if expr == "" {
		return false, nil
	}

	prg, err := dsl.Compile(expr)
	if err != nil {
		return false, err
	}
	content, _ := contentOf(f.Index, item)
	keep, err := prg.Eval(item, content, rctx)
	if err != nil {
		return true, nil
	}
	return !keep, nil
}
