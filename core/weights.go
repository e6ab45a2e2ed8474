package core

import (
	"fmt"
	"time"
)

// SimilarityWeights 是内容相似度的权重表（带版本号，便于审计权重变更）。
//
//	sim(a, b) = SameType·[type_a == type_b]
//	          + Categories·jaccard(categories_a, categories_b)
//	          + Tags·jaccard(tags_a, tags_b)
//	          + Difficulty·[difficulty_a == difficulty_b ≠ ∅]
//	          + Title·jaccard(words(title_a), words(title_b))
//
// 结果截断到 1.0。
type SimilarityWeights struct {
	Version    string  `yaml:"version" json:"version"`
	SameType   float64 `yaml:"same_type" json:"same_type"`
	Categories float64 `yaml:"categories" json:"categories"`
	Tags       float64 `yaml:"tags" json:"tags"`
	Difficulty float64 `yaml:"difficulty" json:"difficulty"`
	Title      float64 `yaml:"title" json:"title"`
}

// DefaultSimilarityWeights 返回 v1 权重。
func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{
		Version:    "v1",
		SameType:   0.3,
		Categories: 0.4,
		Tags:       0.3,
		Difficulty: 0.2,
		Title:      0.1,
	}
}

func (w SimilarityWeights) Validate() error {
	for name, v := range map[string]float64{
		"same_type":  w.SameType,
		"categories": w.Categories,
		"tags":       w.Tags,
		"difficulty": w.Difficulty,
		"title":      w.Title,
	} {
		if v < 0 {
			return fmt.Errorf("similarity weight %s must not be negative: %v", name, v)
		}
	}
	return nil
}

// PersonalizedWeights 是个性化打分的权重表。
// 这些数值是经验起点而非有语义的常量，均可通过配置调整。
type PersonalizedWeights struct {
	Version    string  `yaml:"version" json:"version"`
	Type       float64 `yaml:"type" json:"type"`
	Category   float64 `yaml:"category" json:"category"`
	Difficulty float64 `yaml:"difficulty" json:"difficulty"`
	Similarity float64 `yaml:"similarity" json:"similarity"`
	Recency    float64 `yaml:"recency" json:"recency"`

	// SimilarityReasonThreshold 最大相似度超过该值时才输出“相似内容”解释
	SimilarityReasonThreshold float64 `yaml:"similarity_reason_threshold" json:"similarity_reason_threshold"`
	// MinScore 总分 <= MinScore 的候选被丢弃
	MinScore float64 `yaml:"min_score" json:"min_score"`
	// RecencyWindow 发布时间在该窗口内视为“新发布”
	RecencyWindow time.Duration `yaml:"recency_window" json:"recency_window"`
	// RecentViewed 参与相似度信号的最近浏览条数
	RecentViewed int `yaml:"recent_viewed" json:"recent_viewed"`
}

// DefaultPersonalizedWeights 返回 v1 权重。
func DefaultPersonalizedWeights() PersonalizedWeights {
	return PersonalizedWeights{
		Version:                   "v1",
		Type:                      0.3,
		Category:                  0.25,
		Difficulty:                0.2,
		Similarity:                0.4,
		Recency:                   0.1,
		SimilarityReasonThreshold: 0.3,
		MinScore:                  0.1,
		RecencyWindow:             7 * 24 * time.Hour,
		RecentViewed:              10,
	}
}

func (w PersonalizedWeights) Validate() error {
	for name, v := range map[string]float64{
		"type":       w.Type,
		"category":   w.Category,
		"difficulty": w.Difficulty,
		"similarity": w.Similarity,
		"recency":    w.Recency,
	} {
		if v < 0 {
			return fmt.Errorf("personalized weight %s must not be negative: %v", name, v)
		}
	}
	if w.RecencyWindow < 0 {
		return fmt.Errorf("personalized recency_window must not be negative: %v", w.RecencyWindow)
	}
	if w.RecentViewed < 0 {
		return fmt.Errorf("personalized recent_viewed must not be negative: %d", w.RecentViewed)
	}
	return nil
}
