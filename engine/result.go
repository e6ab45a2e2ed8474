package engine

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/contentrec/core"
)

// Result 是单个策略的执行结果。
//
//   - 成功：Items 为推荐列表（可能为空，例如种子内容不存在或用户没有历史）
//   - 降级：Items 为空，Cause 记录存储故障等原因，同时已输出告警日志
//
// Items 永不为 nil，长度不超过请求的 limit。
type Result struct {
	Strategy  string                      `json:"strategy"`
	Items     []*core.RecommendationScore `json:"items"`
	Cause     error                       `json:"-"`
	Elapsed   time.Duration               `json:"elapsed"`
	RequestID string                      `json:"request_id,omitempty"`
}

// Degraded 判断结果是否因故障降级。
func (r *Result) Degraded() bool {
	return r.Cause != nil
}

// CauseString 返回降级原因的文本，未降级时为空串（便于 JSON 输出）。
func (r *Result) CauseString() string {
	if r.Cause == nil {
		return ""
	}
	return r.Cause.Error()
}

// MarshalJSON 把 Cause 输出为文本字段 cause。
func (r *Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		*alias
		Cause string `json:"cause,omitempty"`
	}{alias: (*alias)(r), Cause: r.CauseString()})
}

// Request 是多策略推荐请求。
type Request struct {
	RequestID string `json:"request_id,omitempty"` // 为空时自动生成

	// Strategies 要执行的策略，为空时按输入推断：
	// 有 ContentID 执行 content_based，有 UserID 执行 personalized，始终执行 trending
	Strategies []string `json:"strategies,omitempty"`

	UserID     string             `json:"user_id,omitempty"`
	ContentID  string             `json:"content_id,omitempty"`
	Window     string             `json:"window,omitempty"` // 热门窗口：day / week / month
	Limit      int                `json:"limit"`
	ExcludeIDs []string           `json:"exclude_ids,omitempty"`
	Types      []core.ContentType `json:"types,omitempty"`
	Filter     string             `json:"filter,omitempty"` // CEL 表达式
	Merge      string             `json:"merge,omitempty"`  // first / priority / union / score
}

// Response 是多策略推荐的响应：逐策略结果，以及按 Merge 合并、去重、截断后的列表。
type Response struct {
	RequestID string                      `json:"request_id"`
	Results   []*Result                   `json:"results"`
	Merged    []*core.RecommendationScore `json:"merged"`
}

// Result 按策略名查找结果。
func (r *Response) Result(strategy string) (*Result, bool) {
	for _, res := range r.Results {
		if res.Strategy == strategy {
			return res, true
		}
	}
	return nil, false
}
