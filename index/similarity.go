package index

import (
	"math"
	"strings"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/feature"
)

type set map[string]struct{}

func newSet(values []string, lower bool) set {
	s := make(set, len(values))
	for _, v := range values {
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
	return s
}

// jaccard 计算两个集合的 Jaccard 相似度，两者都为空时为 0。
func jaccard(a, b set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Jaccard 是 jaccard 的字符串切片版本（大小写敏感）。
func Jaccard(a, b []string) float64 {
	return jaccard(newSet(a, false), newSet(b, false))
}

// profile 是预先计算好的单条内容特征，避免在 O(n²) 循环中重复分词/建集合。
type profile struct {
	id         string
	typ        core.ContentType
	categories set
	tags       set
	difficulty core.Difficulty
	title      set
}

func newProfile(item *core.ContentItem) *profile {
	return &profile{
		id:         item.ID,
		typ:        item.Type,
		categories: newSet(item.Categories, true),
		tags:       newSet(item.Tags, true),
		difficulty: item.Difficulty,
		title:      newSet(feature.Tokenize(item.Title), false),
	}
}

// score 计算复合相似度，结果 ∈ [0, 1]。
func score(w core.SimilarityWeights, a, b *profile) float64 {
	var s float64
	if a.typ != "" && a.typ == b.typ {
		s += w.SameType
	}
	s += w.Categories * jaccard(a.categories, b.categories)
	s += w.Tags * jaccard(a.tags, b.tags)
	if a.difficulty != "" && a.difficulty == b.difficulty {
		s += w.Difficulty
	}
	s += w.Title * jaccard(a.title, b.title)
	return math.Min(s, 1.0)
}

// Similarity 计算两条内容的复合相似度（未经标签抽取，按内容当前的 Tags 计算）。
func Similarity(w core.SimilarityWeights, a, b *core.ContentItem) float64 {
	return score(w, newProfile(a), newProfile(b))
}
