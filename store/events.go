package store

import (
	"context"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
)

// KVEvents 是基于 core.KeyValueStore 有序集合的事件适配器。
//
//	{KeyPrefix}:events:all            全部事件时间线
//	{KeyPrefix}:events:user:{userID}  单个用户的事件时间线
//
// score 为事件时间的 Unix 毫秒；member 为带唯一 ID 的事件 JSON，保证同一毫秒的相同事件不会合并。
type KVEvents struct {
	store     core.KeyValueStore
	KeyPrefix string
	logger    zerolog.Logger
}

type eventEnvelope struct {
	ID    string                 `json:"id"`
	Event *core.InteractionEvent `json:"event"`
}

// NewKVEvents 创建事件适配器，keyPrefix 为空时使用 DefaultKeyPrefix。
func NewKVEvents(s core.KeyValueStore, keyPrefix string) *KVEvents {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &KVEvents{
		store:     s,
		KeyPrefix: keyPrefix,
		logger:    zerolog.Nop(),
	}
}

// WithLogger 设置 logger（记录无法解码的事件）。
func (e *KVEvents) WithLogger(l zerolog.Logger) *KVEvents {
	e.logger = l.With().Str("component", "events").Str("backend", e.store.Name()).Logger()
	return e
}

func (e *KVEvents) allKey() string {
	return e.KeyPrefix + ":events:all"
}

func (e *KVEvents) userKey(userID string) string {
	return e.KeyPrefix + ":events:user:" + userID
}

func (e *KVEvents) EventsForUser(ctx context.Context, userID string, since time.Time) ([]*core.InteractionEvent, error) {
	if userID == "" {
		return []*core.InteractionEvent{}, nil
	}
	return e.rangeSince(ctx, e.userKey(userID), since)
}

func (e *KVEvents) EventsInWindow(ctx context.Context, since time.Time) ([]*core.InteractionEvent, error) {
	return e.rangeSince(ctx, e.allKey(), since)
}

func (e *KVEvents) rangeSince(ctx context.Context, key string, since time.Time) ([]*core.InteractionEvent, error) {
	members, err := e.store.ZRangeByScore(ctx, key, float64(since.UnixMilli()), math.Inf(1))
	if err != nil {
		return nil, core.EventsUnavailable(err)
	}
	out := make([]*core.InteractionEvent, 0, len(members))
	for _, m := range members {
		var env eventEnvelope
		if err := json.Unmarshal([]byte(m), &env); err != nil || env.Event == nil {
			e.logger.Warn().Err(err).Str("key", key).Msg("skip undecodable event")
			continue
		}
		out = append(out, env.Event)
	}
	return out, nil
}

// AppendEvent 追加一条事件（供采集链路的测试替身与数据导入使用，推荐引擎本身只读）。
func (e *KVEvents) AppendEvent(ctx context.Context, ev *core.InteractionEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(eventEnvelope{ID: uuid.NewString(), Event: ev})
	if err != nil {
		return err
	}
	score := float64(ev.Timestamp.UnixMilli())
	if err := e.store.ZAdd(ctx, e.allKey(), score, string(data)); err != nil {
		return core.EventsUnavailable(err)
	}
	if ev.UserID != "" {
		if err := e.store.ZAdd(ctx, e.userKey(ev.UserID), score, string(data)); err != nil {
			return core.EventsUnavailable(err)
		}
	}
	return nil
}

var _ core.EventReader = (*KVEvents)(nil)
