// Package logging 基于 zerolog 构建结构化日志。
//
// 引擎内部不使用全局 logger：各组件通过 Option 注入 zerolog.Logger，
// 并派生带 component 字段的子 logger。未注入时默认为 zerolog.Nop()。
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level: trace / debug / info / warn / error，默认 info
	Level string `yaml:"level" json:"level"`
	// Format: json / console，默认 json
	Format string `yaml:"format" json:"format"`
	// Caller 是否输出调用位置
	Caller bool `yaml:"caller" json:"caller"`
	// Output 默认 os.Stderr
	Output io.Writer `yaml:"-" json:"-"`
}

// New 按配置创建 logger。
func New(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	output := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.TimeOnly}
	}
	ctx := zerolog.New(output).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// ParseLevel 解析日志级别，无法识别时返回 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Component 派生带 component 字段的子 logger。
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
