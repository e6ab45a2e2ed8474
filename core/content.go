package core

import (
	"strings"
	"time"
)

// ContentType 是内容类型：节目 / 文章洞察 / 可下载报告。
type ContentType string

const (
	ContentTypeEpisode ContentType = "episode"
	ContentTypeInsight ContentType = "insight"
	ContentTypeReport  ContentType = "report"
)

// ContentTypes 返回全部已知内容类型（按固定顺序）。
func ContentTypes() []ContentType {
	return []ContentType{ContentTypeEpisode, ContentTypeInsight, ContentTypeReport}
}

// Valid 判断是否为已知内容类型。
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeEpisode, ContentTypeInsight, ContentTypeReport:
		return true
	}
	return false
}

// Difficulty 是内容难度，空值表示未设置。
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Label 返回首字母大写的展示名，例如 "Beginner"。
func (d Difficulty) Label() string {
	if d == "" {
		return ""
	}
	s := string(d)
	return strings.ToUpper(s[:1]) + s[1:]
}

// ContentItem 是目录中的一条内容记录。
//
// 对推荐引擎而言它是只读的，归属于内容目录（Catalog）：
//   - Categories 由编辑维护
//   - Tags 由 feature.TagExtractor 从标题/描述派生
//   - Description 仅用于标签抽取，不参与展示
type ContentItem struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Slug         string      `json:"slug"`
	Type         ContentType `json:"type"`
	Categories   []string    `json:"categories,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	Difficulty   Difficulty  `json:"difficulty,omitempty"`
	LengthMetric string      `json:"length_metric,omitempty"` // 阅读分钟数或时长字符串
	Description  string      `json:"description,omitempty"`
	Published    bool        `json:"published"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// HasCategory 判断内容是否属于某个类别（大小写不敏感）。
func (c *ContentItem) HasCategory(category string) bool {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat, category) {
			return true
		}
	}
	return false
}

// Clone 返回深拷贝，避免调用方修改快照中的切片。
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	out := *c
	out.Categories = append([]string(nil), c.Categories...)
	out.Tags = append([]string(nil), c.Tags...)
	return &out
}
