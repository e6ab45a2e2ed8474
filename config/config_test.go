package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/engine"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/rerank"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, index.DefaultTopK, cfg.Engine.Neighbors)
	assert.Equal(t, core.DefaultPersonalizedWeights(), cfg.Weights.Personalized)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "contentrec.yaml", `
engine:
  neighbors: 5
  lookback_days: 30
  strategy_timeout: 1500ms
weights:
  personalized:
    min_score: 0.2
    recency_window: 72h
vocabulary: [stocks, bonds]
store:
  backend: sqlite
  sqlite:
    path: /tmp/rec.db
log:
  level: debug
pipeline:
  - type: rerank.diversity
    config:
      max_per_category: 2
  - type: filter.expr
    config:
      expr: 'item.type != "report"'
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Engine.Neighbors)
	assert.Equal(t, 30, cfg.Engine.LookbackDays)
	assert.Equal(t, 1500*time.Millisecond, cfg.Engine.StrategyTimeout.Std())
	assert.Equal(t, 0.2, cfg.Weights.Personalized.MinScore)
	assert.Equal(t, 72*time.Hour, cfg.Weights.Personalized.RecencyWindow)
	// 未出现的字段保持默认值
	assert.Equal(t, 0.3, cfg.Weights.Personalized.Type)
	assert.Equal(t, "v1", cfg.Weights.Similarity.Version)
	assert.Equal(t, []string{"stocks", "bonds"}, cfg.Vocabulary)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/rec.db", cfg.Store.SQLite.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Pipeline, 2)
	assert.Equal(t, "rerank.diversity", cfg.Pipeline[0].Type)
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "contentrec.json", `{
  "engine": {"neighbors": 3, "strategy_timeout": 2},
  "store": {"backend": "redis", "redis": {"addr": "redis:6379", "db": 2}}
}`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.Neighbors)
	assert.Equal(t, 90, cfg.Engine.LookbackDays)
	assert.Equal(t, 2*time.Second, cfg.Engine.StrategyTimeout.Std())
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "engine:\n  neighbors: 0\n")
	_, err = Load(bad)
	assert.ErrorContains(t, err, "neighbors")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "contentrec.yaml", `
engine:
  neighbors: 5
store:
  backend: sqlite
  sqlite:
    path: /tmp/rec.db
`)
	t.Setenv("CONTENTREC_STORE_BACKEND", "redis")
	t.Setenv("CONTENTREC_REDIS_ADDR", "cache:6379")
	t.Setenv("CONTENTREC_REDIS_DB", "4")
	t.Setenv("CONTENTREC_NEIGHBORS", "7")
	t.Setenv("CONTENTREC_STRATEGY_TIMEOUT", "250ms")
	t.Setenv("CONTENTREC_LOG_LEVEL", "warn")
	t.Setenv("CONTENTREC_UNKNOWN_KEY", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 4, cfg.Store.Redis.DB)
	assert.Equal(t, 7, cfg.Engine.Neighbors)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.StrategyTimeout.Std())
	assert.Equal(t, "warn", cfg.Log.Level)
	// 文件与环境变量都未覆盖的字段保持默认值
	assert.Equal(t, "/tmp/rec.db", cfg.Store.SQLite.Path)
	assert.Equal(t, 90, cfg.Engine.LookbackDays)
}

func TestLoad_EnvWithoutFile(t *testing.T) {
	t.Setenv("CONTENTREC_STRATEGY_TIMEOUT", "3")
	t.Setenv("CONTENTREC_SQLITE_PATH", "/data/rec.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Engine.StrategyTimeout.Std())
	assert.Equal(t, "/data/rec.db", cfg.Store.SQLite.Path)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("CONTENTREC_NEIGHBORS", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "store.backend", envTransform("CONTENTREC_STORE_BACKEND"))
	assert.Equal(t, "store.redis.addr", envTransform("CONTENTREC_REDIS_ADDR"))
	assert.Equal(t, "engine.strategy_timeout", envTransform("CONTENTREC_STRATEGY_TIMEOUT"))
	assert.Empty(t, envTransform("CONTENTREC_NOPE"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero neighbors", func(c *Config) { c.Engine.Neighbors = 0 }},
		{"zero lookback", func(c *Config) { c.Engine.LookbackDays = 0 }},
		{"negative timeout", func(c *Config) { c.Engine.StrategyTimeout = -1 }},
		{"negative similarity weight", func(c *Config) { c.Weights.Similarity.Tags = -0.1 }},
		{"negative personalized weight", func(c *Config) { c.Weights.Personalized.Recency = -1 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.SQLite.Path = "" }},
		{"unknown node", func(c *Config) { c.Pipeline = []pipeline.NodeConfig{{Type: "rank.lr"}} }},
		{"bad expr", func(c *Config) {
			c.Pipeline = []pipeline.NodeConfig{{Type: "filter.expr", Config: map[string]any{"expr": "item.type =="}}}
		}},
		{"bad type", func(c *Config) {
			c.Pipeline = []pipeline.NodeConfig{{Type: "filter.type", Config: map[string]any{"types": []any{"video"}}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNodeFactory(t *testing.T) {
	f := NewNodeFactory(index.NewHolder(index.NewBuilder(nil)))

	nodes, err := pipeline.BuildNodes([]pipeline.NodeConfig{
		{Type: "filter.exclude", Config: map[string]any{"ids": []any{"a", "b"}}},
		{Type: "filter.type", Config: map[string]any{"types": []any{"episode"}}},
		{Type: "rank.sort"},
		{Type: "rerank.diversity", Config: map[string]any{"max_per_category": 2}},
		{Type: "rerank.topn", Config: map[string]any{"n": 3}},
	}, f)
	require.NoError(t, err)
	require.Len(t, nodes, 5)
	assert.Equal(t, 2, nodes[3].(*rerank.Diversity).MaxPerCategory)
	assert.Equal(t, 3, nodes[4].(*rerank.TopNNode).N)

	_, err = f.Build("rank.lr", nil)
	assert.Error(t, err)
	assert.Contains(t, SupportedTypes(), "filter.expr")
}

func TestOpenStoresAndEngine(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Store.Backend = BackendSQLite
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "rec.db")
	cfg.Pipeline = []pipeline.NodeConfig{{Type: "rerank.topn", Config: map[string]any{"n": 1}}}
	require.NoError(t, cfg.Validate())

	stores, err := cfg.OpenStores(ctx, zerolog.Nop())
	require.NoError(t, err)
	defer stores.Close()

	now := time.Now()
	for _, it := range []*core.ContentItem{
		{ID: "a", Title: "Stocks today", Type: core.ContentTypeInsight, Categories: []string{"stocks"}, Published: true, CreatedAt: now},
		{ID: "b", Title: "Stocks tomorrow", Type: core.ContentTypeInsight, Categories: []string{"stocks"}, Published: true, CreatedAt: now},
		{ID: "c", Title: "Stocks next week", Type: core.ContentTypeInsight, Categories: []string{"stocks"}, Published: true, CreatedAt: now},
	} {
		require.NoError(t, stores.Writer.PutContent(ctx, it))
	}

	e, err := engine.New(stores.Catalog, stores.Events, cfg.EngineOptions(zerolog.Nop(), nil)...)
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx))

	res, err := e.ContentBased(ctx, "a", 5)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestOpenStoresMemory(t *testing.T) {
	ctx := context.Background()
	stores, err := Default().OpenStores(ctx, zerolog.Nop())
	require.NoError(t, err)
	defer stores.Close()

	require.NoError(t, stores.Writer.AppendEvent(ctx, &core.InteractionEvent{
		Action: core.ActionView, ContentID: "a", UserID: "u1", Timestamp: time.Now(),
	}))
	events, err := stores.Events.EventsForUser(ctx, "u1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
