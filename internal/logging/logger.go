// Package logging provides the process-wide zap logger for the dashboard.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	logger  *zap.Logger
	sugared *zap.SugaredLogger
)

func init() {
	l, err := build("info", "")
	if err != nil {
		l = zap.NewNop()
	}
	set(l)
}

// Initialize replaces the default logger. Output always goes to stderr and,
// when file is set, is appended to that file as well.
func Initialize(level, file string) error {
	l, err := build(level, file)
	if err != nil {
		return err
	}
	set(l)
	return nil
}

func build(level, file string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}

	return cfg.Build()
}

func set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	sugared = l.Sugar()
}

// L returns the structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sync flushes buffered entries.
func Sync() error {
	return L().Sync()
}

func Infof(format string, args ...any) {
	sugar().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	sugar().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	sugar().Errorf(format, args...)
}

func Debugf(format string, args ...any) {
	sugar().Debugf(format, args...)
}

func sugar() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}
