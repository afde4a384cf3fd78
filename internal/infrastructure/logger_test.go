package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"tabkit/internal/config"
)

func TestNewLogger_Console(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LoggingConfig
		validate func(t *testing.T, out string)
	}{
		{
			name: "json format",
			cfg:  config.LoggingConfig{Level: "info", Format: "json", Output: "console"},
			validate: func(t *testing.T, out string) {
				var entry map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &entry))
				assert.Equal(t, "test message", entry["msg"])
				assert.Equal(t, "value", entry["key"])
				assert.Equal(t, "run-1", entry["run_id"])
			},
		},
		{
			name: "text format",
			cfg:  config.LoggingConfig{Level: "info", Format: "text", Output: "console"},
			validate: func(t *testing.T, out string) {
				assert.Contains(t, out, `msg="test message"`)
				assert.Contains(t, out, "key=value")
				assert.Contains(t, out, "run_id=run-1")
			},
		},
		{
			name: "level filters",
			cfg:  config.LoggingConfig{Level: "error", Format: "text", Output: "console"},
			validate: func(t *testing.T, out string) {
				assert.Empty(t, out)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(tt.cfg, &buf)
			require.NoError(t, err)
			defer logger.Close()

			ctx := WithRunID(context.Background(), "run-1")
			logger.InfoContext(ctx, "test message", "key", "value")

			tt.validate(t, buf.String())
		})
	}
}

func TestNewLogger_File(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "tabkit.log")

	var console bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "both",
		FilePath: logFile,
	}, &console)
	require.NoError(t, err)

	logger.Debug("to both")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "second close is a no-op")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "to both")
	assert.Contains(t, console.String(), "to both")
}

func TestNewLogger_FileOnly(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "tabkit.log")

	var console bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "file", FilePath: logFile}, &console)
	require.NoError(t, err)
	logger.Info("file only")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file only")
	assert.Empty(t, console.String())
}

func TestNewLogger_BadFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := NewLogger(config.LoggingConfig{Output: "file", FilePath: filepath.Join(blocker, "x.log")}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "console"}, &buf)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-2")
	WithComponent(logger.Logger, "join").WithGroup("stats").InfoContext(ctx, "grouped", "rows", 3)

	out := buf.String()
	assert.Contains(t, out, "component=join")
	assert.Contains(t, out, "stats.rows=3")
	assert.Contains(t, out, "run-2")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestRunID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRunID(ctx))

	ctx = EnsureRunID(ctx)
	id := GetRunID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetRunID(EnsureRunID(ctx)), "existing id is kept")

	assert.NotEqual(t, GenerateRunID(), GenerateRunID())
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	assert.Same(t, base, WithError(base, nil))
	WithError(base, assert.AnError).Info("failed")
	assert.Contains(t, buf.String(), "error=")
}

func TestNewLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)
	defer logger.Close()

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "in span")
	span.End()
	logger.InfoContext(context.Background(), "no span")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inSpan, noSpan map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inSpan))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &noSpan))
	assert.Equal(t, span.SpanContext().TraceID().String(), inSpan["trace_id"])
	assert.NotContains(t, noSpan, "trace_id")
}
