package diverset

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with diverset-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithK adds a k (selection size) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogFingerprintBatch logs a fingerprint batch run.
func (l *Logger) LogFingerprintBatch(ctx context.Context, total, cached, computed, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "fingerprint batch completed with failures",
			"total", total,
			"cached", cached,
			"computed", computed,
			"failed", failed,
		)
	} else {
		l.DebugContext(ctx, "fingerprint batch completed",
			"total", total,
			"cached", cached,
			"computed", computed,
		)
	}
}

// LogSelect logs a selection run.
func (l *Logger) LogSelect(ctx context.Context, k, candidates int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "selection failed",
			"k", k,
			"candidates", candidates,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "selection completed",
			"k", k,
			"candidates", candidates,
		)
	}
}

// LogCacheSave logs a cache snapshot save.
func (l *Logger) LogCacheSave(ctx context.Context, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cache save failed",
			"entries", entries,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "cache saved",
			"entries", entries,
		)
	}
}
