package core

import "time"

// UserProfile 是由交互历史聚合出的用户偏好画像。
//
// 它被个性化策略只读使用：
//   - 偏好类型 / 类别 / 难度：驱动加权打分
//   - 已浏览内容：候选集排除 + 相似度信号
//   - 收藏内容：保留给上层展示
//
// 画像按需构建，并在引擎生命周期内按用户缓存（profile.Cache），
// 只会被显式 Rebuild / Invalidate 刷新。
type UserProfile struct {
	UserID string

	// 偏好信号（按频次降序，频次相同按首次出现顺序）
	PreferredTypes      []ContentType
	PreferredCategories []string
	PreferredDifficulty []Difficulty

	// 行为序列（最近的在前，已去重）
	ViewedContentIDs     []string
	BookmarkedContentIDs []string

	BuiltAt time.Time

	viewed map[string]struct{}
}

// NewUserProfile 创建一个空的默认画像（无偏好、无历史）。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:               userID,
		PreferredTypes:       make([]ContentType, 0),
		PreferredCategories:  make([]string, 0),
		PreferredDifficulty:  make([]Difficulty, 0),
		ViewedContentIDs:     make([]string, 0),
		BookmarkedContentIDs: make([]string, 0),
		BuiltAt:              time.Now(),
	}
}

// IsEmpty 判断画像是否没有任何信号。
func (p *UserProfile) IsEmpty() bool {
	return len(p.PreferredTypes) == 0 && len(p.PreferredCategories) == 0 &&
		len(p.PreferredDifficulty) == 0 && len(p.ViewedContentIDs) == 0 &&
		len(p.BookmarkedContentIDs) == 0
}

// Seal 建立已浏览集合索引。画像构建完成、进入缓存前调用一次，之后只读。
func (p *UserProfile) Seal() *UserProfile {
	p.viewed = make(map[string]struct{}, len(p.ViewedContentIDs))
	for _, id := range p.ViewedContentIDs {
		p.viewed[id] = struct{}{}
	}
	return p
}

// HasViewed 判断用户是否浏览/播放过该内容。
func (p *UserProfile) HasViewed(contentID string) bool {
	if p.viewed != nil {
		_, ok := p.viewed[contentID]
		return ok
	}
	for _, id := range p.ViewedContentIDs {
		if id == contentID {
			return true
		}
	}
	return false
}

// PrefersType 判断内容类型是否在偏好类型中。
func (p *UserProfile) PrefersType(t ContentType) bool {
	for _, pt := range p.PreferredTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// PrefersAnyCategory 判断任一类别是否与偏好类别相交。
func (p *UserProfile) PrefersAnyCategory(categories []string) bool {
	for _, c := range categories {
		for _, pc := range p.PreferredCategories {
			if c == pc {
				return true
			}
		}
	}
	return false
}

// PrefersDifficulty 判断难度是否在偏好难度中，空难度恒为 false。
func (p *UserProfile) PrefersDifficulty(d Difficulty) bool {
	if d == "" {
		return false
	}
	for _, pd := range p.PreferredDifficulty {
		if pd == d {
			return true
		}
	}
	return false
}

// RecentViewed 返回最近浏览的 n 个内容 ID。
func (p *UserProfile) RecentViewed(n int) []string {
	if n <= 0 || len(p.ViewedContentIDs) <= n {
		return p.ViewedContentIDs
	}
	return p.ViewedContentIDs[:n]
}
