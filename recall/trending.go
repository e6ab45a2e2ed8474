package recall

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/utils"
)

// 热门统计窗口
const (
	WindowDay   = "day"
	WindowWeek  = "week"
	WindowMonth = "month"

	// DefaultWindow 是未指定窗口时使用的窗口
	DefaultWindow = WindowWeek
)

// 互动权重：engagement = views + 3·shares + 2·bookmarks
const (
	viewWeight     = 1
	shareWeight    = 3
	bookmarkWeight = 2
)

// ParseWindow 把窗口名解析为时长，空串视为 DefaultWindow，未知窗口返回 core.ErrInvalidWindow。
func ParseWindow(window string) (time.Duration, error) {
	switch window {
	case WindowDay:
		return 24 * time.Hour, nil
	case WindowWeek, "":
		return 7 * 24 * time.Hour, nil
	case WindowMonth:
		return 30 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidWindow, window)
}

// Trending 是“近期热门”策略：统计窗口内每个内容的浏览 / 分享 / 收藏次数。
//
// 返回的 Score 为 engagement 除以窗口内最大 engagement（∈(0,1]），
// 原始 engagement 与各项计数保存在 Labels 中。
// Index 可选，仅用于 rctx.Types 类型限定：快照中找不到的内容在有类型限定时被跳过。
type Trending struct {
	Events core.EventReader
	Index  *index.Holder
}

func (r *Trending) Name() string        { return StrategyTrending }
func (r *Trending) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Trending) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.RecommendationScore,
) ([]*core.RecommendationScore, error) {
	return r.Recall(ctx, rctx)
}

type engagement struct {
	id                       string
	views, shares, bookmarks int
}

func (e engagement) total() int {
	return viewWeight*e.views + shareWeight*e.shares + bookmarkWeight*e.bookmarks
}

func (r *Trending) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.RecommendationScore, error) {
	if rctx == nil {
		rctx = core.NewRecommendContext()
	}
	window, err := ParseWindow(rctx.Window)
	if err != nil {
		return nil, err
	}
	if r.Events == nil {
		return []*core.RecommendationScore{}, nil
	}

	events, err := r.Events.EventsInWindow(ctx, rctx.Clock().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("read events in window: %w", err)
	}

	counts := make(map[string]*engagement)
	for _, ev := range events {
		if ev == nil || ev.ContentID == "" || !ev.IsContentInteraction() {
			continue
		}
		e := counts[ev.ContentID]
		if e == nil {
			e = &engagement{id: ev.ContentID}
			counts[ev.ContentID] = e
		}
		switch ev.Action {
		case core.ActionView:
			e.views++
		case core.ActionShare:
			e.shares++
		case core.ActionBookmark:
			e.bookmarks++
		}
	}

	var snapshot *index.Index
	if r.Index != nil {
		snapshot = r.Index.Current()
	}

	ranked := make([]engagement, 0, len(counts))
	for id, e := range counts {
		if e.total() == 0 || rctx.IsExcluded(id) {
			continue
		}
		if len(rctx.Types) > 0 {
			if snapshot == nil {
				continue
			}
			item, ok := snapshot.Item(id)
			if !ok || !rctx.AllowsType(item.Type) {
				continue
			}
		}
		ranked = append(ranked, *e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].total() != ranked[j].total() {
			return ranked[i].total() > ranked[j].total()
		}
		return ranked[i].id < ranked[j].id
	})

	out := make([]*core.RecommendationScore, 0, len(ranked))
	if len(ranked) == 0 {
		return out, nil
	}
	top := float64(ranked[0].total())
	for _, e := range ranked {
		s := core.NewRecommendationScore(e.id)
		s.Score = float64(e.total()) / top
		s.AddReason(fmt.Sprintf("%d views, %d shares, %d bookmarks.", e.views, e.shares, e.bookmarks))
		s.PutLabel(utils.LabelEngagement, utils.Label{Value: strconv.Itoa(e.total()), Source: "recall"})
		s.PutLabel(utils.LabelViews, utils.Label{Value: strconv.Itoa(e.views), Source: "recall"})
		s.PutLabel(utils.LabelShares, utils.Label{Value: strconv.Itoa(e.shares), Source: "recall"})
		s.PutLabel(utils.LabelBookmarks, utils.Label{Value: strconv.Itoa(e.bookmarks), Source: "recall"})
		out = append(out, s)
	}
	return out, nil
}
