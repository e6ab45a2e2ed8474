package core

import "time"

// Action 是一次内容交互的动作类型。
type Action string

const (
	ActionView     Action = "view"
	ActionPlay     Action = "play"
	ActionBookmark Action = "bookmark"
	ActionShare    Action = "share"
)

// EventTypeContentInteraction 是内容交互事件的 event_type。
const EventTypeContentInteraction = "content_interaction"

// InteractionEvent 是已入库的交互事件，推荐引擎只读。
type InteractionEvent struct {
	EventType string            `json:"event_type"`
	Action    Action            `json:"action"`
	ContentID string            `json:"content_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
}

// IsContentInteraction 判断事件是否为内容交互（空 event_type 视为内容交互）。
func (e *InteractionEvent) IsContentInteraction() bool {
	return e.EventType == "" || e.EventType == EventTypeContentInteraction
}

// IsConsumption 判断是否为消费类动作（浏览 / 播放）。
func (e *InteractionEvent) IsConsumption() bool {
	return e.Action == ActionView || e.Action == ActionPlay
}
