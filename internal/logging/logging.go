// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"gex-engine/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       false,
		FilePath:   filepath.Join(home, ".config", "gex-engine", "logs", "gex.log"),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
	}
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
// Console output goes to stderr so that stdout carries only command output.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg LogConfig, console io.Writer) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:         console,
			TimeFormat:  time.RFC3339,
			FormatLevel: formatLevel,
		})
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

func formatLevel(i interface{}) string {
	if ll, ok := i.(string); ok {
		switch ll {
		case "debug":
			return "\033[36mDBG\033[0m"
		case "info":
			return "\033[32mINF\033[0m"
		case "warn":
			return "\033[33mWRN\033[0m"
		case "error":
			return "\033[31mERR\033[0m"
		default:
			return ll
		}
	}
	return "???"
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level names a supported log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogAnalysis logs a completed snapshot analysis.
func LogAnalysis(logger zerolog.Logger, symbol string, spot float64, strikes, degenerate int, totals models.ExposureTotals, duration time.Duration) {
	logger.Info().
		Str("event", "analysis").
		Str("symbol", symbol).
		Float64("spot", spot).
		Int("strikes", strikes).
		Int("degenerate", degenerate).
		Float64("net_gex", totals.NetGEX).
		Float64("net_dex", totals.NetDEX).
		Dur("duration", duration).
		Msg("Snapshot analyzed")
}

// LogSignal logs a derived signal.
func LogSignal(logger zerolog.Logger, symbol string, signal models.Signal) {
	logger.Info().
		Str("event", "signal").
		Str("symbol", symbol).
		Str("bias", string(signal.Bias)).
		Str("rule", string(signal.Rule)).
		Float64("confidence", signal.Confidence).
		Msg("Signal derived")
}

// LogDropped logs rows left out of a snapshot during normalization.
func LogDropped(logger zerolog.Logger, symbol string, row int, reason string) {
	logger.Warn().
		Str("event", "row_dropped").
		Str("symbol", symbol).
		Int("row", row).
		Str("reason", reason).
		Msg("Row dropped")
}
