package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日誌設定
type Config struct {
	// Level debug / info / warn / error，空字串為 info
	Level string `yaml:"level"`
	// Format json 或 console
	Format string `yaml:"format"`
	// Development 開啟時會輸出呼叫堆疊，並在 DPanic 時 panic
	Development bool `yaml:"development"`
}

// New 建立 zap logger，回傳的 AtomicLevel 可在執行中調整等級
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if strings.TrimSpace(cfg.Level) != "" {
		var parsed zapcore.Level
		if err := parsed.Set(cfg.Level); err != nil {
			return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level.SetLevel(parsed)
	}

	base := zap.NewProductionConfig()
	if cfg.Development {
		base = zap.NewDevelopmentConfig()
	}
	switch cfg.Format {
	case "", "json":
		base.Encoding = "json"
	case "console":
		base.Encoding = "console"
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	base.Level = level
	base.DisableStacktrace = !cfg.Development
	base.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := base.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to build logger: %w", err)
	}
	return built, level, nil
}
