package config

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/store"
)

// Stores 是按配置打开的目录与事件存储。Writer 用于 seed 等写入场景，引擎只读。
type Stores struct {
	Catalog core.CatalogReader
	Events  core.EventReader
	Writer  store.Writer
	close   func() error
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores 按 store.backend 打开存储。
func (c *Config) OpenStores(ctx context.Context, logger zerolog.Logger) (*Stores, error) {
	switch c.Store.Backend {
	case BackendSQLite:
		db, err := store.OpenSQLite(c.Store.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &Stores{Catalog: db, Events: db, Writer: db, close: db.Close}, nil

	case BackendRedis:
		kv, err := store.NewRedisStore(ctx, c.Store.Redis)
		if err != nil {
			return nil, err
		}
		return kvStores(kv, c.Store.KeyPrefix, logger), nil

	case BackendMemory, "":
		return kvStores(store.NewMemoryStore(), c.Store.KeyPrefix, logger), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}

func kvStores(kv core.KeyValueStore, prefix string, logger zerolog.Logger) *Stores {
	catalog := store.NewKVCatalog(kv, prefix).WithLogger(logger)
	events := store.NewKVEvents(kv, prefix).WithLogger(logger)
	return &Stores{
		Catalog: catalog,
		Events:  events,
		Writer:  kvWriter{catalog, events},
		close:   kv.Close,
	}
}

type kvWriter struct {
	*store.KVCatalog
	*store.KVEvents
}
