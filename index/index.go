// Package index 构建并持有内容相似度索引。
//
// Index 是某一时刻目录快照上的不可变结构：每条内容保留 TopK 个相似邻居（不含自身）。
// 邻居关系不保证对称：A 的 TopK 中有 B，不代表 B 的 TopK 中有 A。
// 重建时在旁路构造完整的新 Index，再由 Holder 以一次原子指针替换发布，
// 并发读者不会看到构建到一半的索引。
package index

import (
	"sort"
	"time"

	"github.com/rushteam/contentrec/core"
)

// Neighbor 是一个相似邻居。
type Neighbor struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index 是不可变的相似度索引快照，同时携带构建时的目录快照（供个性化候选集使用）。
type Index struct {
	Version        uint64
	BuiltAt        time.Time
	WeightsVersion string

	ids       []string // 按 ID 升序
	items     map[string]*core.ContentItem
	neighbors map[string][]Neighbor
}

// Empty 返回空索引（首次构建前的初始状态）。
func Empty() *Index {
	return &Index{
		ids:       []string{},
		items:     map[string]*core.ContentItem{},
		neighbors: map[string][]Neighbor{},
	}
}

// Len 返回索引覆盖的内容数。
func (x *Index) Len() int {
	return len(x.ids)
}

// Neighbors 返回内容的邻居列表（按分数降序）。返回值只读，调用方不得修改。
// 不在索引中的 ID 返回 nil。
func (x *Index) Neighbors(id string) []Neighbor {
	return x.neighbors[id]
}

// Similarity 返回 from 邻居列表中 to 的分数。
func (x *Index) Similarity(from, to string) (float64, bool) {
	for _, n := range x.neighbors[from] {
		if n.ID == to {
			return n.Score, true
		}
	}
	return 0, false
}

// MutualSimilarity 取两个方向中的较大值（索引非对称，截断相互独立）。
func (x *Index) MutualSimilarity(a, b string) float64 {
	s1, _ := x.Similarity(a, b)
	s2, _ := x.Similarity(b, a)
	if s2 > s1 {
		return s2
	}
	return s1
}

// Item 返回快照中的内容。返回值只读。
func (x *Index) Item(id string) (*core.ContentItem, bool) {
	it, ok := x.items[id]
	return it, ok
}

// Items 按 ID 升序返回快照中的全部内容。
func (x *Index) Items() []*core.ContentItem {
	out := make([]*core.ContentItem, 0, len(x.ids))
	for _, id := range x.ids {
		out = append(out, x.items[id])
	}
	return out
}

// Stats 是索引概况。
type Stats struct {
	Version        uint64         `json:"version"`
	BuiltAt        time.Time      `json:"built_at"`
	WeightsVersion string         `json:"weights_version"`
	Items          int            `json:"items"`
	Edges          int            `json:"edges"`
	AvgNeighbors   float64        `json:"avg_neighbors"`
	ItemsByType    map[string]int `json:"items_by_type"`
}

func (x *Index) Stats() Stats {
	st := Stats{
		Version:        x.Version,
		BuiltAt:        x.BuiltAt,
		WeightsVersion: x.WeightsVersion,
		Items:          len(x.ids),
		ItemsByType:    make(map[string]int),
	}
	for _, id := range x.ids {
		st.Edges += len(x.neighbors[id])
		st.ItemsByType[string(x.items[id].Type)]++
	}
	if st.Items > 0 {
		st.AvgNeighbors = float64(st.Edges) / float64(st.Items)
	}
	return st
}

// sortNeighbors 按分数降序、ID 升序排序，保证确定性。
func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Score != ns[j].Score {
			return ns[i].Score > ns[j].Score
		}
		return ns[i].ID < ns[j].ID
	})
}
