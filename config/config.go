// Package config 加载推荐引擎的运行配置。
//
// 分层顺序：默认值 < 配置文件（YAML / JSON）< CONTENTREC_* 环境变量。
//
//	engine:
//	  neighbors: 10
//	  lookback_days: 90
//	  strategy_timeout: 2s
//	weights:
//	  personalized: {min_score: 0.1}
//	store:
//	  backend: sqlite
//	  sqlite: {path: ./contentrec.db}
//	pipeline:
//	  - type: rerank.diversity
//	    config: {max_per_category: 2}
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/rushteam/contentrec/core"
	"github.com/rushteam/contentrec/engine"
	"github.com/rushteam/contentrec/feature"
	"github.com/rushteam/contentrec/index"
	"github.com/rushteam/contentrec/pipeline"
	"github.com/rushteam/contentrec/pkg/logging"
	"github.com/rushteam/contentrec/pkg/metrics"
	"github.com/rushteam/contentrec/store"
)

// EnvPrefix 是环境变量覆盖的前缀。
const EnvPrefix = "CONTENTREC_"

// 存储后端
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Engine     EngineConfig          `yaml:"engine" json:"engine"`
	Weights    WeightsConfig         `yaml:"weights" json:"weights"`
	Vocabulary []string              `yaml:"vocabulary" json:"vocabulary"`
	Store      StoreConfig           `yaml:"store" json:"store"`
	Log        logging.Config        `yaml:"log" json:"log"`
	Pipeline   []pipeline.NodeConfig `yaml:"pipeline" json:"pipeline"`
}

type EngineConfig struct {
	Neighbors       int      `yaml:"neighbors" json:"neighbors"`
	LookbackDays    int      `yaml:"lookback_days" json:"lookback_days"`
	StrategyTimeout Duration `yaml:"strategy_timeout" json:"strategy_timeout"`
	MaxConcurrent   int      `yaml:"max_concurrent" json:"max_concurrent"`
	BuildWorkers    int      `yaml:"build_workers" json:"build_workers"`
}

type WeightsConfig struct {
	Similarity   core.SimilarityWeights   `yaml:"similarity" json:"similarity"`
	Personalized core.PersonalizedWeights `yaml:"personalized" json:"personalized"`
}

type StoreConfig struct {
	Backend   string            `yaml:"backend" json:"backend"`
	KeyPrefix string            `yaml:"key_prefix" json:"key_prefix"`
	Redis     store.RedisConfig `yaml:"redis" json:"redis"`
	SQLite    SQLiteConfig      `yaml:"sqlite" json:"sqlite"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Duration 支持 "2s" 形式的字符串，也接受整数秒。
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if sec, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(sec) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Default 返回默认配置：内存存储、v1 权重、默认词表。
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Neighbors:    index.DefaultTopK,
			LookbackDays: 90,
		},
		Weights: WeightsConfig{
			Similarity:   core.DefaultSimilarityWeights(),
			Personalized: core.DefaultPersonalizedWeights(),
		},
		Store: StoreConfig{
			Backend:   BackendMemory,
			KeyPrefix: store.DefaultKeyPrefix,
			Redis:     store.RedisConfig{Addr: "localhost:6379"},
			SQLite:    SQLiteConfig{Path: "contentrec.db"},
		},
		Log: logging.Config{Level: "info", Format: "json"},
	}
}

// envKeys 把去掉前缀的环境变量名映射到配置路径。
var envKeys = map[string]string{
	"STORE_BACKEND":    "store.backend",
	"STORE_KEY_PREFIX": "store.key_prefix",
	"REDIS_ADDR":       "store.redis.addr",
	"REDIS_PASSWORD":   "store.redis.password",
	"REDIS_DB":         "store.redis.db",
	"SQLITE_PATH":      "store.sqlite.path",
	"LOG_LEVEL":        "log.level",
	"LOG_FORMAT":       "log.format",
	"NEIGHBORS":        "engine.neighbors",
	"LOOKBACK_DAYS":    "engine.lookback_days",
	"STRATEGY_TIMEOUT": "engine.strategy_timeout",
	"MAX_CONCURRENT":   "engine.max_concurrent",
	"BUILD_WORKERS":    "engine.build_workers",
}

// envTransform 将 CONTENTREC_REDIS_ADDR 转换为 store.redis.addr，未知变量返回空串被忽略。
func envTransform(name string) string {
	return envKeys[strings.TrimPrefix(name, EnvPrefix)]
}

// Load 加载配置：默认值，然后是配置文件（path 非空时），最后是环境变量覆盖，并校验。
func Load(path string) (*Config, error) {
	k, err := newKoanf(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	cfg, err := unmarshal(k)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 只从默认值与配置文件加载（不读环境变量、不校验）。
// 扩展名为 .json 时按 JSON 解析，其余按 YAML 解析。
func LoadFile(path string) (*Config, error) {
	k, err := newKoanf(path)
	if err != nil {
		return nil, err
	}
	return unmarshal(k)
}

func newKoanf(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "yaml"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path == "" {
		return k, nil
	}
	var parser koanf.Parser = yaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = jsonParser{}
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}
	return k, nil
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{}
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				durationHook,
				mapstructure.StringToTimeDurationHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           cfg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(Duration(0))

// durationHook 把字符串（"2s" 或 "5"）与数字（按秒）解码为 Duration。
func durationHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType {
		return data, nil
	}
	var d Duration
	switch v := data.(type) {
	case string:
		if err := d.parse(v); err != nil {
			return nil, err
		}
	case int:
		d = Duration(time.Duration(v) * time.Second)
	case int64:
		d = Duration(time.Duration(v) * time.Second)
	case float64:
		d = Duration(v * float64(time.Second))
	default:
		return data, nil
	}
	return d, nil
}

// jsonParser 用 go-json 实现 koanf.Parser。
type jsonParser struct{}

func (jsonParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (jsonParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return json.Marshal(m)
}

// Validate 校验配置。
func (c *Config) Validate() error {
	if c.Engine.Neighbors <= 0 {
		return fmt.Errorf("engine.neighbors must be positive: %d", c.Engine.Neighbors)
	}
	if c.Engine.LookbackDays <= 0 {
		return fmt.Errorf("engine.lookback_days must be positive: %d", c.Engine.LookbackDays)
	}
	if c.Engine.StrategyTimeout < 0 {
		return fmt.Errorf("engine.strategy_timeout must not be negative")
	}
	if c.Engine.MaxConcurrent < 0 || c.Engine.BuildWorkers < 0 {
		return fmt.Errorf("engine.max_concurrent and engine.build_workers must not be negative")
	}
	if err := c.Weights.Similarity.Validate(); err != nil {
		return fmt.Errorf("weights.similarity: %w", err)
	}
	if err := c.Weights.Personalized.Validate(); err != nil {
		return fmt.Errorf("weights.personalized: %w", err)
	}
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q (supported: %s, %s, %s)",
			c.Store.Backend, BackendMemory, BackendRedis, BackendSQLite)
	}
	return ValidateNodes(c.Pipeline)
}

// Logger 按日志配置创建 logger。
func (c *Config) Logger() zerolog.Logger {
	return logging.New(c.Log)
}

// EngineOptions 把配置转换为 engine.Option。
func (c *Config) EngineOptions(logger zerolog.Logger, m *metrics.Metrics) []engine.Option {
	opts := []engine.Option{
		engine.WithSimilarityWeights(c.Weights.Similarity),
		engine.WithPersonalizedWeights(c.Weights.Personalized),
		engine.WithTagExtractor(feature.NewKeywordExtractor(feature.WithVocabulary(c.Vocabulary))),
		engine.WithNeighbors(c.Engine.Neighbors),
		engine.WithBuildWorkers(c.Engine.BuildWorkers),
		engine.WithLookback(time.Duration(c.Engine.LookbackDays) * 24 * time.Hour),
		engine.WithStrategyTimeout(c.Engine.StrategyTimeout.Std()),
		engine.WithMaxConcurrent(c.Engine.MaxConcurrent),
		engine.WithLogger(logger),
		engine.WithMetrics(m),
	}
	if len(c.Pipeline) > 0 {
		nodes := c.Pipeline
		opts = append(opts, engine.WithNodes(func(h *index.Holder) ([]pipeline.Node, error) {
			return pipeline.BuildNodes(nodes, NewNodeFactory(h))
		}))
	}
	return opts
}
