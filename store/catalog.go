package store

import (
	"context"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
)

// KVCatalog 是基于 core.KeyValueStore 的内容目录适配器。
// 所有内容类型（节目/洞察/报告）归一化后存放在同一个 Hash 中：
//
//	{KeyPrefix}:catalog  field = 内容 ID, value = ContentItem JSON
type KVCatalog struct {
	store     core.KeyValueStore
	KeyPrefix string
	logger    zerolog.Logger
}

// NewKVCatalog 创建目录适配器，keyPrefix 为空时使用 DefaultKeyPrefix。
func NewKVCatalog(s core.KeyValueStore, keyPrefix string) *KVCatalog {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &KVCatalog{
		store:     s,
		KeyPrefix: keyPrefix,
		logger:    zerolog.Nop(),
	}
}

// WithLogger 设置 logger（记录无法解码的记录）。
func (c *KVCatalog) WithLogger(l zerolog.Logger) *KVCatalog {
	c.logger = l.With().Str("component", "catalog").Str("backend", c.store.Name()).Logger()
	return c
}

func (c *KVCatalog) key() string {
	return c.KeyPrefix + ":catalog"
}

func (c *KVCatalog) ListPublished(ctx context.Context, types ...core.ContentType) ([]*core.ContentItem, error) {
	raw, err := c.store.HGetAll(ctx, c.key())
	if err != nil {
		return nil, core.CatalogUnavailable(err)
	}

	out := make([]*core.ContentItem, 0, len(raw))
	for id, data := range raw {
		item, ok := c.decode(id, data)
		if !ok || !item.Published || !typeAllowed(item.Type, types) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *KVCatalog) Get(ctx context.Context, id string) (*core.ContentItem, error) {
	data, err := c.store.HGet(ctx, c.key(), id)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrContentNotFound
		}
		return nil, core.CatalogUnavailable(err)
	}
	item, ok := c.decode(id, data)
	if !ok || !item.Published {
		return nil, core.ErrContentNotFound
	}
	return item, nil
}

func (c *KVCatalog) GetMany(ctx context.Context, ids []string) (map[string]*core.ContentItem, error) {
	raw, err := c.store.HMGet(ctx, c.key(), ids...)
	if err != nil {
		return nil, core.CatalogUnavailable(err)
	}
	out := make(map[string]*core.ContentItem, len(raw))
	for id, data := range raw {
		if item, ok := c.decode(id, data); ok && item.Published {
			out[id] = item
		}
	}
	return out, nil
}

// PutContent 写入/覆盖一条内容（供数据导入与测试使用，推荐引擎本身只读）。
func (c *KVCatalog) PutContent(ctx context.Context, item *core.ContentItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if err := c.store.HSet(ctx, c.key(), item.ID, data); err != nil {
		return core.CatalogUnavailable(err)
	}
	return nil
}

func (c *KVCatalog) decode(id string, data []byte) (*core.ContentItem, bool) {
	var item core.ContentItem
	if err := json.Unmarshal(data, &item); err != nil {
		c.logger.Warn().Err(err).Str("content_id", id).Msg("skip undecodable catalog record")
		return nil, false
	}
	if item.ID == "" {
		item.ID = id
	}
	return &item, true
}

func typeAllowed(t core.ContentType, types []core.ContentType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

// 确保实现目录接口
var (
	_ core.CatalogReader = (*KVCatalog)(nil)
	_ core.BatchReader   = (*KVCatalog)(nil)
)
