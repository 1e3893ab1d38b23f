package pagealloc

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with allocator-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, logs go to stderr as text at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		return NewTextLogger(os.Stderr, slog.LevelInfo)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON records at or above level to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes key=value records at or above
// level to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithSlab adds a slab id field to the logger.
func (l *Logger) WithSlab(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("slab", id),
	}
}

// WithPages adds a page count field to the logger.
func (l *Logger) WithPages(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("pages", n),
	}
}

// LogSlabMapped logs a newly mapped slab.
func (l *Logger) LogSlabMapped(ctx context.Context, id uint32, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "slab mapping failed",
			"slab", id,
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "slab mapped",
			"slab", id,
			"bytes", bytes,
		)
	}
}

// LogSlabReleased logs a slab being unmapped.
func (l *Logger) LogSlabReleased(ctx context.Context, id uint32, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "slab unmap failed",
			"slab", id,
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "slab released",
			"slab", id,
			"bytes", bytes,
		)
	}
}

// LogPurge logs a purge pass.
func (l *Logger) LogPurge(ctx context.Context, pages, slabsReleased int, err error) {
	if err != nil {
		l.WarnContext(ctx, "purge stopped early",
			"pages", pages,
			"slabs_released", slabsReleased,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "purge completed",
			"pages", pages,
			"slabs_released", slabsReleased,
		)
	}
}

// LogAllocFailure logs an allocation that could not be satisfied.
func (l *Logger) LogAllocFailure(ctx context.Context, size int, err error) {
	l.WarnContext(ctx, "allocation failed",
		"size", size,
		"error", err,
	)
}
