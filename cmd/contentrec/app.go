package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/config"
	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/engine"
	"github.com/rushteam/contentrec/store"
)

type app struct {
	configPath string
	fixtures   string
	human      bool

	cfg    *config.Config
	logger zerolog.Logger
}

// Fixtures 是 seed / --fixtures 使用的数据文件格式。
type Fixtures struct {
	Content []*core.ContentItem      `json:"content"`
	Events  []*core.InteractionEvent `json:"events"`
}

func readFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// apply 写入内容与事件。未设置时间的内容与事件使用 now。
func (f *Fixtures) apply(ctx context.Context, w store.Writer, now time.Time) error {
	for _, it := range f.Content {
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		if err := w.PutContent(ctx, it); err != nil {
			return fmt.Errorf("put content %s: %w", it.ID, err)
		}
	}
	for _, ev := range f.Events {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = now
		}
		if err := w.AppendEvent(ctx, ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}
	return nil
}

func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger()
	return nil
}

func (a *app) openStores(ctx context.Context) (*config.Stores, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	stores, err := a.cfg.OpenStores(ctx, a.logger)
	if err != nil {
		return nil, err
	}
	if a.fixtures != "" {
		f, err := readFixtures(a.fixtures)
		if err == nil {
			err = f.apply(ctx, stores.Writer, time.Now())
		}
		if err != nil {
			stores.Close()
			return nil, err
		}
	}
	return stores, nil
}

// openEngine 打开存储并构建首个索引。索引构建失败时返回错误，不以空索引继续。
func (a *app) openEngine(ctx context.Context) (*engine.Engine, func(), error) {
	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	e, err := engine.New(stores.Catalog, stores.Events, a.cfg.EngineOptions(a.logger, nil)...)
	if err == nil {
		err = e.Start(ctx)
	}
	if err != nil {
		stores.Close()
		return nil, nil, err
	}
	return e, func() { stores.Close() }, nil
}
