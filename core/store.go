package core

import (
	"context"
	"time"
)

// CatalogReader 是内容目录的只读接口（外部协作方）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 返回的内容已归一化（三种内容类型合并为同构的 ContentItem）
//   - Get 对不存在或未发布的内容返回 ErrContentNotFound
//
// 实现：
//   - store.KVCatalog（基于 core.KeyValueStore：MemoryStore / RedisStore）
//   - store.SQLiteStore
type CatalogReader interface {
	// ListPublished 列出已发布内容，types 为空表示全部类型
	ListPublished(ctx context.Context, types ...ContentType) ([]*ContentItem, error)

	// Get 读取单个内容
	Get(ctx context.Context, id string) (*ContentItem, error)
}

// BatchReader 是 CatalogReader 的可选扩展：批量读取，减少富化阶段的往返。
// 返回的 map 中不包含不存在或未发布的 ID。
type BatchReader interface {
	GetMany(ctx context.Context, ids []string) (map[string]*ContentItem, error)
}

// EventReader 是交互事件的只读接口（外部协作方）。
// 事件由上游采集链路写入，推荐引擎只读取。
type EventReader interface {
	// EventsForUser 读取用户自 since 以来的事件（按时间升序）
	EventsForUser(ctx context.Context, userID string, since time.Time) ([]*InteractionEvent, error)

	// EventsInWindow 读取全部用户自 since 以来的事件（按时间升序）
	EventsInWindow(ctx context.Context, since time.Time) ([]*InteractionEvent, error)
}

// Store 是 KV 存储的领域接口，由 store.MemoryStore / store.RedisStore 实现。
// 目录与事件的 KV 适配器（store.KVCatalog / store.KVEvents）构建在它之上。
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl ...int) error
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取，不存在的 key 不出现在结果中
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持更丰富的 KV 操作。
//
// 扩展功能：
//   - 有序集合（SortedSet）：事件时间线（score = Unix 毫秒）
//   - 哈希表（Hash）：内容目录（field = 内容 ID）
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按排名获取有序集合成员（降序）
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZRangeByScore 获取 score ∈ [min, max] 的成员（按 score 升序）
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)

	ZScore(ctx context.Context, key string, member string) (float64, error)

	HGet(ctx context.Context, key, field string) ([]byte, error)
	HSet(ctx context.Context, key, field string, value []byte) error
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// HMGet 批量读取 Hash 字段，不存在的字段不出现在结果中
	HMGet(ctx context.Context, key string, fields ...string) (map[string][]byte, error)
}

// 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")

	// ErrContentNotFound 表示内容不存在或未发布
	ErrContentNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: content not found")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsContentNotFound 检查错误是否为内容不存在
func IsContentNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleCatalog {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// CatalogUnavailable 把后端错误包装为目录不可用错误。
func CatalogUnavailable(err error) error {
	return WrapDomainError(ModuleCatalog, ErrorCodeUnavailable, "catalog: store unavailable", err)
}

// EventsUnavailable 把后端错误包装为事件存储不可用错误。
func EventsUnavailable(err error) error {
	return WrapDomainError(ModuleEvents, ErrorCodeUnavailable, "events: store unavailable", err)
}
