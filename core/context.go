package core

import "time"

// RecommendContext 承载一次推荐请求的用户/场景信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	RequestID string
	UserID    string
	ContentID string // 内容相似推荐的种子内容

	// User 是已解析的用户画像（个性化策略使用），可能为默认空画像
	User *UserProfile

	// Exclude 是调用方显式排除的内容 ID（例如当前页面已展示的内容）
	Exclude map[string]struct{}

	// Types 限定返回的内容类型，为空表示不限
	Types []ContentType

	// Window 是热门策略的统计窗口（day / week / month）
	Window string

	// Limit 是期望返回的条数，0 表示不截断
	Limit int

	// Filter 是可选的 CEL 过滤表达式，例如 item.type == "report"
	Filter string

	// Now 是本次请求的“当前时间”，用于新近度打分，零值表示 time.Now()
	Now time.Time

	// Params 请求级扩展参数
	Params map[string]any
}

// NewRecommendContext 创建请求上下文，excludeIDs 中的空串会被忽略。
func NewRecommendContext(excludeIDs ...string) *RecommendContext {
	rctx := &RecommendContext{
		Exclude: make(map[string]struct{}, len(excludeIDs)),
		Params:  make(map[string]any),
	}
	for _, id := range excludeIDs {
		rctx.AddExclude(id)
	}
	return rctx
}

// AddExclude 追加排除 ID。
func (rctx *RecommendContext) AddExclude(id string) {
	if id == "" {
		return
	}
	if rctx.Exclude == nil {
		rctx.Exclude = make(map[string]struct{})
	}
	rctx.Exclude[id] = struct{}{}
}

// IsExcluded 判断内容是否被调用方排除。
func (rctx *RecommendContext) IsExcluded(id string) bool {
	if rctx == nil || rctx.Exclude == nil {
		return false
	}
	_, ok := rctx.Exclude[id]
	return ok
}

// AllowsType 判断内容类型是否满足 Types 限定。
func (rctx *RecommendContext) AllowsType(t ContentType) bool {
	if rctx == nil || len(rctx.Types) == 0 {
		return true
	}
	for _, want := range rctx.Types {
		if want == t {
			return true
		}
	}
	return false
}

// Clock 返回本次请求的当前时间。
func (rctx *RecommendContext) Clock() time.Time {
	if rctx == nil || rctx.Now.IsZero() {
		return time.Now()
	}
	return rctx.Now
}
