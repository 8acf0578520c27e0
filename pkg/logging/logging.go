package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. format is "json" (production encoder) or
// "console" (development encoder); level is any zapcore level name.
func New(level, format string, opts ...zap.Option) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "dev", "development":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("service", "solfolio")), nil
}

// Must is New for bootstrap code. An unknown level falls back to info in the
// requested format and is reported as a warning; a logger that cannot be
// built at all becomes a nop logger.
func Must(level, format string, opts ...zap.Option) *zap.Logger {
	logger, err := New(level, format, opts...)
	if err == nil {
		return logger
	}
	logger, fallbackErr := New("info", format, opts...)
	if fallbackErr != nil {
		return zap.NewNop()
	}
	logger.Warn("invalid log level, using info", zap.String("level", level), zap.Error(err))
	return logger
}
