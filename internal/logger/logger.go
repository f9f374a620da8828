// Package logger provides process-wide structured logging on top of
// log/slog, writing through lumberjack for rotation, mirroring the
// logger.Infof/Warnf/Errorf call-site convention used throughout the
// teacher codebase.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how log records are written.
type Config struct {
	// Format is "json" or "text". Empty defaults to "text".
	Format string
	// Severity is one of "debug", "info", "warn", "error". Empty defaults
	// to "info".
	Severity string
	// FilePath, if set, routes output through a rotating lumberjack
	// writer instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Init installs the process-wide logger built from cfg. Call once at
// startup, before any mount operation begins.
func Init(cfg Config) {
	var out io.Writer = os.Stderr
	if cfg.FilePath != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    nonZero(cfg.MaxSizeMB, 100),
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}

	level := ParseSeverity(cfg.Severity)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	defaultLogger = slog.New(handler)
}

func nonZero(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// ParseSeverity maps a configured severity name to its slog.Level,
// defaulting to info for an empty or unrecognized value.
func ParseSeverity(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, args ...any) { defaultLogger.Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { defaultLogger.Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { defaultLogger.Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { defaultLogger.Error(fmt.Sprintf(format, args...)) }

func Info(msg string)  { defaultLogger.Info(msg) }
func Warn(msg string)  { defaultLogger.Warn(msg) }
func Error(msg string) { defaultLogger.Error(msg) }

// legacyWriter adapts the package logger to io.Writer so it can back a
// *log.Logger, for collaborators (like fuse.MountConfig) that still expect
// the standard library logging interface.
type legacyWriter struct {
	level slog.Level
}

func (w legacyWriter) Write(p []byte) (int, error) {
	defaultLogger.Log(context.Background(), w.level, string(p))
	return len(p), nil
}

// NewLegacyLogger returns a *log.Logger that forwards through the package
// logger at the given level, for handing to fuse.MountConfig.ErrorLogger /
// DebugLogger.
func NewLegacyLogger(level slog.Level, prefix string) *log.Logger {
	return log.New(legacyWriter{level: level}, prefix, 0)
}
