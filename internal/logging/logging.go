// Package logging builds the zap loggers used across simplethink.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger at the given level. The json format uses the
// production encoder, console the development one. Output goes to stderr
// so generated text on stdout stays clean.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var config zap.Config
	switch strings.ToLower(format) {
	case "", FormatConsole:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	case FormatJSON:
		config = zap.NewProductionConfig()
		config.Sampling = nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", format, FormatJSON, FormatConsole)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}

// ParseLevel maps a level name to a zap level; empty means warn
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.WarnLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return lvl, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return lvl, nil
}

// MustNew is New for command wiring; it falls back to a no-op logger
func MustNew(level, format string) *zap.Logger {
	logger, err := New(level, format)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
