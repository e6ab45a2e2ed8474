package feature

import (
	"sort"
	"strings"
	"unicode"

	"github.com/rushteam/contentrec/core"
)

// DefaultVocabulary 是财经/科技领域的静态关键词表。
// 标签抽取只做大小写不敏感的子串匹配，词表是配置而不是计算结果。
var DefaultVocabulary = []string{
	"artificial intelligence",
	"automation",
	"banking",
	"blockchain",
	"bonds",
	"budget",
	"cloud",
	"crypto",
	"cybersecurity",
	"data",
	"debt",
	"dividends",
	"economy",
	"etf",
	"fintech",
	"inflation",
	"interest rates",
	"investing",
	"machine learning",
	"mortgage",
	"payments",
	"pension",
	"portfolio",
	"real estate",
	"regulation",
	"retirement",
	"saas",
	"savings",
	"startup",
	"stocks",
	"tax",
	"trading",
	"venture capital",
}

// TagExtractor 是标签抽取器的统一接口，采用策略模式。
// 实现必须是纯函数：无副作用、无错误，空文本返回空集合。
type TagExtractor interface {
	// Extract 从标题和正文/描述中抽取标签（去重、排序）
	Extract(title, body string) []string

	// Name 返回抽取器名称（用于日志/监控）
	Name() string
}

// KeywordExtractor 是基于固定词表的标签抽取器。
type KeywordExtractor struct {
	vocabulary []string
}

// KeywordExtractorOption 关键词抽取器配置选项
type KeywordExtractorOption func(*KeywordExtractor)

// WithVocabulary 替换默认词表，空词表保持默认值
func WithVocabulary(words []string) KeywordExtractorOption {
	return func(e *KeywordExtractor) {
		if len(words) > 0 {
			e.vocabulary = words
		}
	}
}

// NewKeywordExtractor 创建关键词抽取器，默认使用 DefaultVocabulary
func NewKeywordExtractor(opts ...KeywordExtractorOption) *KeywordExtractor {
	e := &KeywordExtractor{vocabulary: DefaultVocabulary}
	for _, opt := range opts {
		opt(e)
	}
	normalized := make([]string, 0, len(e.vocabulary))
	seen := make(map[string]struct{}, len(e.vocabulary))
	for _, w := range e.vocabulary {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		normalized = append(normalized, w)
	}
	e.vocabulary = normalized
	return e
}

func (e *KeywordExtractor) Name() string {
	return "keyword"
}

func (e *KeywordExtractor) Extract(title, body string) []string {
	text := strings.ToLower(title + "\n" + body)
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	tags := make([]string, 0, 4)
	for _, w := range e.vocabulary {
		if strings.Contains(text, w) {
			tags = append(tags, w)
		}
	}
	sort.Strings(tags)
	return tags
}

// ApplyTags 把抽取出的标签与已有标签合并，返回新的内容副本，原对象不被修改。
func ApplyTags(extractor TagExtractor, item *core.ContentItem) *core.ContentItem {
	out := item.Clone()
	if extractor == nil {
		return out
	}
	merged := make(map[string]struct{}, len(out.Tags))
	for _, t := range out.Tags {
		merged[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range extractor.Extract(item.Title, item.Description) {
		merged[t] = struct{}{}
	}
	out.Tags = make([]string, 0, len(merged))
	for t := range merged {
		out.Tags = append(out.Tags, t)
	}
	sort.Strings(out.Tags)
	return out
}

// Tokenize 把标题切成小写词集合（按非字母数字字符切分）。
func Tokenize(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
