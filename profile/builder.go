// Package profile 从交互事件聚合用户画像，并按用户缓存。
package profile

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pkg/logging"
	"github.com/rushteam/contentrec/pkg/metrics"
)

const (
	// DefaultLookback 是画像回看的事件窗口。
	DefaultLookback = 90 * 24 * time.Hour

	// topPreferences 是每类偏好保留的个数。
	topPreferences = 5

	// 未知内容时读取的事件 metadata 字段
	metaContentType = "content_type"
	metaCategory    = "category"
	metaDifficulty  = "difficulty"
)

// Builder 从 EventReader 读取用户近期事件并聚合为 UserProfile。
// 内容属性优先从当前索引的目录快照中解析，快照中没有的内容回退到事件 metadata。
type Builder struct {
	events   core.EventReader
	index    *index.Holder
	lookback time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

type BuilderOption func(*Builder)

// WithIndex 设置用于解析内容属性的索引。
func WithIndex(h *index.Holder) BuilderOption {
	return func(b *Builder) { b.index = h }
}

// WithLookback 设置回看窗口，非正数忽略。
func WithLookback(d time.Duration) BuilderOption {
	return func(b *Builder) {
		if d > 0 {
			b.lookback = d
		}
	}
}

// WithClock 替换时钟（测试用）。
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

func WithLogger(l zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logging.Component(l, "profile") }
}

func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

func NewBuilder(events core.EventReader, opts ...BuilderOption) *Builder {
	b := &Builder{
		events:   events,
		lookback: DefaultLookback,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 构建用户画像，返回值永不为 nil。
//
// 事件读取失败时记录告警并返回空的默认画像，同时返回读取错误，
// 调用方据此决定是否缓存以及是否标记降级。
func (b *Builder) Build(ctx context.Context, userID string) (*core.UserProfile, error) {
	p := core.NewUserProfile(userID)
	p.BuiltAt = b.now()
	if userID == "" || b.events == nil {
		b.metrics.ObserveProfileBuild(metrics.OutcomeEmpty)
		return p.Seal(), nil
	}

	events, err := b.events.EventsForUser(ctx, userID, p.BuiltAt.Add(-b.lookback))
	if err != nil {
		b.logger.Warn().Err(err).Str("user_id", userID).Msg("read user events failed, using empty profile")
		b.metrics.ObserveProfileBuild(metrics.OutcomeDegraded)
		return p.Seal(), err
	}

	var snapshot *index.Index
	if b.index != nil {
		snapshot = b.index.Current()
	}
	aggregate(p, events, snapshot)

	b.metrics.ObserveProfileBuild(metrics.OutcomeOK)
	b.logger.Debug().
		Str("user_id", userID).
		Int("events", len(events)).
		Int("viewed", len(p.ViewedContentIDs)).
		Msg("profile built")
	return p.Seal(), nil
}

// aggregate 按时间从新到旧处理事件（events 为升序）。
func aggregate(p *core.UserProfile, events []*core.InteractionEvent, snapshot *index.Index) {
	types := newCounter()
	categories := newCounter()
	difficulties := newCounter()
	viewed := make(map[string]struct{})
	bookmarked := make(map[string]struct{})

	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev == nil || ev.ContentID == "" || !ev.IsContentInteraction() {
			continue
		}

		switch {
		case ev.IsConsumption():
			if _, ok := viewed[ev.ContentID]; !ok {
				viewed[ev.ContentID] = struct{}{}
				p.ViewedContentIDs = append(p.ViewedContentIDs, ev.ContentID)
			}
		case ev.Action == core.ActionBookmark:
			if _, ok := bookmarked[ev.ContentID]; !ok {
				bookmarked[ev.ContentID] = struct{}{}
				p.BookmarkedContentIDs = append(p.BookmarkedContentIDs, ev.ContentID)
			}
		}

		typ, cats, diff, ok := resolve(ev, snapshot)
		if !ok {
			continue
		}
		types.add(string(typ))
		for _, c := range cats {
			categories.add(c)
		}
		difficulties.add(string(diff))
	}

	for _, t := range types.top(topPreferences) {
		p.PreferredTypes = append(p.PreferredTypes, core.ContentType(t))
	}
	p.PreferredCategories = append(p.PreferredCategories, categories.top(topPreferences)...)
	for _, d := range difficulties.top(topPreferences) {
		p.PreferredDifficulty = append(p.PreferredDifficulty, core.Difficulty(d))
	}
}

// resolve 返回事件对应内容的类型 / 类别 / 难度。
func resolve(ev *core.InteractionEvent, snapshot *index.Index) (core.ContentType, []string, core.Difficulty, bool) {
	if snapshot != nil {
		if item, ok := snapshot.Item(ev.ContentID); ok {
			return item.Type, item.Categories, item.Difficulty, true
		}
	}
	typ := core.ContentType(ev.Metadata[metaContentType])
	if !typ.Valid() {
		return "", nil, "", false
	}
	var cats []string
	if c := ev.Metadata[metaCategory]; c != "" {
		cats = []string{c}
	}
	return typ, cats, core.Difficulty(ev.Metadata[metaDifficulty]), true
}

// counter 记录频次与首次出现顺序，空值不计数。
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(v string) {
	if v == "" {
		return
	}
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// top 返回频次最高的 n 个值，频次相同按首次出现顺序。
func (c *counter) top(n int) []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	sort.SliceStable(out, func(i, j int) bool { return c.counts[out[i]] > c.counts[out[j]] })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
