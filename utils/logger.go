package utils

import (
	"fmt"
	"log"
	"sync"

	"consultline/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// NewLogger builds the service logger. Production emits JSON at info, anything
// else colored console output at debug. A non-empty level overrides both.
func NewLogger(production bool, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if production {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build(zap.Fields(zap.String("service", "consultline")))
}

// GetLogger returns the process-wide logger, building it from AppConfig on first use.
func GetLogger() *zap.Logger {
	loggerOnce.Do(func() {
		l, err := NewLogger(config.IsProduction(), config.AppConfig.LogLevel)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		logger = l
		zap.ReplaceGlobals(logger)
	})
	return logger
}
