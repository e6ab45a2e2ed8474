package core

import "github.com/rushteam/contentrec/pkg/utils"

// RecommendationScore 是推荐链路中的统一承载结构：内容、分数、解释、标签。
// Reasons 面向用户（可读解释）；Labels 面向观测与合并策略（召回来源、原始计数等）。
//
// 富化（Enrich）之前 Content 为 nil，只有 ContentID。
type RecommendationScore struct {
	ContentID string                 `json:"content_id"`
	Content   *ContentItem           `json:"content,omitempty"`
	Score     float64                `json:"score"`
	Reasons   []string               `json:"reasons"`
	Labels    map[string]utils.Label `json:"labels,omitempty"`
}

func NewRecommendationScore(contentID string) *RecommendationScore {
	return &RecommendationScore{
		ContentID: contentID,
		Reasons:   make([]string, 0, 2),
		Labels:    make(map[string]utils.Label),
	}
}

// Clone 复制分数、解释与标签；Content 为只读快照，共享同一指针。
func (s *RecommendationScore) Clone() *RecommendationScore {
	out := *s
	out.Reasons = append([]string(nil), s.Reasons...)
	out.Labels = make(map[string]utils.Label, len(s.Labels))
	for k, v := range s.Labels {
		out.Labels[k] = v
	}
	return &out
}

// AddReason 追加一条解释，重复的解释只保留第一次出现。
func (s *RecommendationScore) AddReason(reason string) {
	if reason == "" {
		return
	}
	for _, r := range s.Reasons {
		if r == reason {
			return
		}
	}
	s.Reasons = append(s.Reasons, reason)
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (s *RecommendationScore) PutLabel(key string, lbl utils.Label) {
	if s.Labels == nil {
		s.Labels = make(map[string]utils.Label)
	}
	if old, ok := s.Labels[key]; ok {
		s.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	s.Labels[key] = lbl
}

// Label 读取 Label 的值，不存在时返回空串。
func (s *RecommendationScore) Label(key string) string {
	if s.Labels == nil {
		return ""
	}
	return s.Labels[key].Value
}
