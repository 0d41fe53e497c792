package testutils

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecord is a captured log line.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record for assertions.
type LogCapture struct {
	store *logStore
	attrs []slog.Attr
}

type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewLogCapture returns a logger writing to a fresh capture.
func NewLogCapture() (*slog.Logger, *LogCapture) {
	c := &LogCapture{store: &logStore{}}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.records = append(c.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogCapture{store: c.store, attrs: append(append([]slog.Attr(nil), c.attrs...), attrs...)}
}

func (c *LogCapture) WithGroup(string) slog.Handler { return c }

// Records returns a snapshot of captured records.
func (c *LogCapture) Records() []LogRecord {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return append([]LogRecord(nil), c.store.records...)
}

// Count returns how many records have message msg.
func (c *LogCapture) Count(msg string) int {
	n := 0
	for _, r := range c.Records() {
		if r.Message == msg {
			n++
		}
	}
	return n
}

// CountLevel returns how many records at level have message msg.
func (c *LogCapture) CountLevel(level slog.Level, msg string) int {
	n := 0
	for _, r := range c.Records() {
		if r.Level == level && r.Message == msg {
			n++
		}
	}
	return n
}
