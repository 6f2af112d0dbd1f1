package hnswlib

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the structured logger an Index reports through. Every record
// of an Index carries its instance id and dimension.
//
// Failures are logged at Error, lifecycle changes at Info and per-item
// operations at Debug.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler. A nil handler logs text to stderr at Info.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger logs JSON records at level and above to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger logs logfmt records at level and above to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards everything. It is the default of New.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func (l *Logger) forIndex(id string, dim int) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("index", id), slog.Int("dimension", dim))}
}

// outcome logs msg at level, or "<op> failed" at Error when err is set.
func (l *Logger) outcome(ctx context.Context, level slog.Level, op, msg string, err error, attrs ...slog.Attr) {
	if err != nil {
		l.LogAttrs(ctx, slog.LevelError, op+" failed", append(attrs, slog.Any("error", err))...)
		return
	}
	l.LogAttrs(ctx, level, msg, attrs...)
}

func (l *Logger) logInitialize(ctx context.Context, maxElements, m, efConstruction int) {
	l.LogAttrs(ctx, slog.LevelInfo, "index initialized",
		slog.Int("max_elements", maxElements),
		slog.Int("m", m),
		slog.Int("ef_construction", efConstruction),
	)
}

func (l *Logger) logInsert(ctx context.Context, label uint64, err error) {
	if err == nil && !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.outcome(ctx, slog.LevelDebug, "insert", "vector inserted", err, slog.Uint64("label", label))
}

func (l *Logger) logSearch(ctx context.Context, k, found int, err error) {
	if err == nil && !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.outcome(ctx, slog.LevelDebug, "search", "search completed", err,
		slog.Int("k", k),
		slog.Int("results", found),
	)
}

func (l *Logger) logSave(ctx context.Context, target string, bytes int64, err error) {
	l.outcome(ctx, slog.LevelInfo, "save", "index saved", err,
		slog.String("target", target),
		slog.Int64("bytes", bytes),
	)
}

func (l *Logger) logLoad(ctx context.Context, source string, count int, err error) {
	l.outcome(ctx, slog.LevelInfo, "load", "index loaded", err,
		slog.String("source", source),
		slog.Int("count", count),
	)
}

func (l *Logger) logClear(ctx context.Context, count int) {
	l.LogAttrs(ctx, slog.LevelInfo, "index cleared", slog.Int("count", count))
}
