// Package dsl 提供基于 CEL 的请求级过滤表达式。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/contentrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存已编译的表达式，key 为表达式原文
	programs sync.Map
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的过滤表达式，可并发执行。
//
// 表达式语法（CEL 标准语法）：
//   - 内容属性：item.type == "report" / item.difficulty != "advanced"
//   - 集合：    "tax" in item.categories / item.tags.exists(t, t == "crypto")
//   - 分数：    item.score > 0.5
//   - 标签：    label.recall_source == "trending"
//   - 请求：    rctx.user_id != ""
//
// 示例：
//   - `item.type == "report" && "tax" in item.categories`
//   - `item.age_days <= 30.0 || label.recall_source == "trending"`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，语法错误返回 INVALID_INPUT 领域错误。结果按表达式原文缓存。
func Compile(expr string) (*Program, error) {
	if p, ok := programs.Load(expr); ok {
		return p.(*Program), nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "dsl: cel env", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dsl: compile %q", expr), issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dsl: program %q", expr), err)
	}

	p := &Program{expr: expr, prg: prg}
	actual, _ := programs.LoadOrStore(expr, p)
	return actual.(*Program), nil
}

// String 返回表达式原文。
func (p *Program) String() string {
	return p.expr
}

// Eval 对单个候选求值。item 为 nil 时只能访问 id / score 与 label。
func (p *Program) Eval(score *core.RecommendationScore, item *core.ContentItem, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(score, item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must return boolean, got %T", p.expr, out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(score *core.RecommendationScore, item *core.ContentItem, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{})
	in := map[string]interface{}{}
	if score != nil {
		for k, v := range score.Labels {
			labels[k] = v.Value
		}
		in["id"] = score.ContentID
		in["score"] = score.Score
		in["reasons"] = nonNil(score.Reasons)
	}
	if item != nil {
		in["id"] = item.ID
		in["title"] = item.Title
		in["slug"] = item.Slug
		in["type"] = string(item.Type)
		in["categories"] = nonNil(item.Categories)
		in["tags"] = nonNil(item.Tags)
		in["difficulty"] = string(item.Difficulty)
		in["length_metric"] = item.LengthMetric
		in["published"] = item.Published
		in["created_at"] = item.CreatedAt
		in["age_days"] = rctx.Clock().Sub(item.CreatedAt).Hours() / 24
	}

	r := map[string]interface{}{}
	if rctx != nil {
		r["request_id"] = rctx.RequestID
		r["user_id"] = rctx.UserID
		r["content_id"] = rctx.ContentID
		r["window"] = rctx.Window
		if rctx.Params != nil {
			r["params"] = rctx.Params
		} else {
			r["params"] = map[string]any{}
		}
	}

	return map[string]interface{}{
		"item":  in,
		"label": labels,
		"rctx":  r,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
