// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is a captured log record
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// logStore is shared by a handler and the handlers derived from it
type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// CaptureHandler records log records in memory so tests can assert on them
type CaptureHandler struct {
	store *logStore
	attrs []slog.Attr
	t     *testing.T
}

// NewCaptureHandler creates a handler that also echoes records to t.Logf
func NewCaptureHandler(t *testing.T) *CaptureHandler {
	return &CaptureHandler{store: &logStore{}, t: t}
}

// NewTestLogger creates a logger backed by a capture handler
func NewTestLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	handler := NewCaptureHandler(t)
	return slog.New(handler), handler
}

// Handle implements slog.Handler
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// Enabled implements slog.Handler; every level is captured
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CaptureHandler{store: h.store, attrs: merged, t: h.t}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *CaptureHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of the captured records
func (h *CaptureHandler) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	records := make([]LogRecord, len(h.store.records))
	copy(records, h.store.records)
	return records
}

// Find returns the first record at level whose message contains message
func (h *CaptureHandler) Find(level slog.Level, message string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, message) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// AssertLogContains fails t unless a record at level contains message
func AssertLogContains(t *testing.T, handler *CaptureHandler, level slog.Level, message string) {
	t.Helper()

	if _, ok := handler.Find(level, message); ok {
		return
	}
	t.Errorf("Expected log message not found at level %s: %q", level, message)
	for _, r := range handler.Records() {
		t.Logf("  - [%s] %s", r.Level, r.Message)
	}
}

// AssertNoErrors fails t if an error-level record was captured
func AssertNoErrors(t *testing.T, handler *CaptureHandler) {
	t.Helper()

	for _, r := range handler.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("Unexpected error log: %s: %v", r.Message, r.Attrs)
		}
	}
}
