package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LogLine is one captured log record, served by the logs endpoint.
type LogLine struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

type logRing struct {
	mu    sync.Mutex
	lines []LogLine
	limit int
}

func (r *logRing) append(line LogLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if len(r.lines) > r.limit {
		r.lines = r.lines[len(r.lines)-r.limit:]
	}
}

func (r *logRing) recent() []LogLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogLine(nil), r.lines...)
}

// LogBuffer is a slog.Handler that tees records to an inner handler while
// retaining the most recent ones in a fixed-size ring shared across all
// derived handlers.
type LogBuffer struct {
	inner slog.Handler
	ring  *logRing
	attrs []slog.Attr
}

// NewLogBuffer wraps inner, retaining up to limit records.
func NewLogBuffer(inner slog.Handler, limit int) *LogBuffer {
	return &LogBuffer{inner: inner, ring: &logRing{limit: limit}}
}

func (b *LogBuffer) Enabled(ctx context.Context, level slog.Level) bool {
	return b.inner.Enabled(ctx, level)
}

func (b *LogBuffer) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(map[string]any, record.NumAttrs()+len(b.attrs))
	for _, a := range b.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	b.ring.append(LogLine{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: record.Message,
		Attrs:   attrs,
	})
	return b.inner.Handle(ctx, record)
}

func (b *LogBuffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogBuffer{
		inner: b.inner.WithAttrs(attrs),
		ring:  b.ring,
		attrs: append(append([]slog.Attr(nil), b.attrs...), attrs...),
	}
}

func (b *LogBuffer) WithGroup(name string) slog.Handler {
	return &LogBuffer{
		inner: b.inner.WithGroup(name),
		ring:  b.ring,
		attrs: b.attrs,
	}
}

// Recent returns the retained lines, oldest first.
func (b *LogBuffer) Recent() []LogLine { return b.ring.recent() }
