// Package store 提供内容目录与交互事件的存储实现。
//
// 注意：接口定义在 core 包（core.Store / core.KeyValueStore / core.CatalogReader / core.EventReader），
// 此包只包含实现：
//
//   - MemoryStore / RedisStore：KV 后端，实现 core.KeyValueStore
//   - KVCatalog / KVEvents：构建在任意 core.KeyValueStore 之上的目录与事件适配器
//   - SQLiteStore：可查询的关系型后端，直接实现目录与事件接口
//
// 示例：
//
//	kv := NewMemoryStore()
//	var catalog core.CatalogReader = NewKVCatalog(kv, "contentrec")
//	var events core.EventReader = NewKVEvents(kv, "contentrec")
package store

import (
	"context"

	"github.com/rushteam/contentrec/core"
)

// DefaultKeyPrefix 是 KV 适配器的默认 key 前缀。
const DefaultKeyPrefix = "contentrec"

// ErrNotFound 是 core.ErrStoreNotFound 的别名，便于包内使用。
var ErrNotFound = core.ErrStoreNotFound

// Writer 是目录与事件的写入接口，供数据导入与测试使用，推荐引擎本身只读。
type Writer interface {
	PutContent(ctx context.Context, item *core.ContentItem) error
	AppendEvent(ctx context.Context, ev *core.InteractionEvent) error
}

var _ Writer = (*SQLiteStore)(nil)
