package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/telhawk-systems/telhawk-reviews/common/middleware"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
	}{
		{name: "json format with info level", level: slog.LevelInfo, format: "json"},
		{name: "text format with debug level", level: slog.LevelDebug, format: "text"},
		{name: "default format (json) with error level", level: slog.LevelError, format: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil || logger.Logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	logger.Info("stored", SourceEventID("appt-1"))

	output := buf.String()
	if !strings.Contains(output, `"source_event_id":"appt-1"`) {
		t.Errorf("expected source_event_id in output, got: %s", output)
	}
	if !strings.HasPrefix(output, "{") {
		t.Errorf("expected JSON output, got: %s", output)
	}
}

func TestNewWithWriter_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelWarn, "text")

	logger.Info("hidden")
	logger.Warn("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info line should be filtered at warn level, got: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("expected warn line in output, got: %s", output)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	tests := []struct {
		name        string
		ctx         context.Context
		expectReqID bool
	}{
		{
			name:        "context with request ID",
			ctx:         context.WithValue(context.Background(), middleware.RequestIDKey, "test-req-123"),
			expectReqID: true,
		},
		{
			name:        "context without request ID",
			ctx:         context.Background(),
			expectReqID: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			logger.WithContext(tt.ctx).Info("test message")

			hasReqID := strings.Contains(buf.String(), `"request_id":"test-req-123"`)
			if hasReqID != tt.expectReqID {
				t.Errorf("request_id present = %v, want %v; output: %s", hasReqID, tt.expectReqID, buf.String())
			}
		})
	}
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug, "json")
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "lvl-1")

	logger.DebugContext(ctx, "debug message")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message")

	output := buf.String()
	for _, want := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug message", "error message"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if strings.Count(output, "lvl-1") != 4 {
		t.Errorf("expected request ID on every line, got: %s", output)
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	enriched := logger.With(Service("reviews"))
	enriched.Info("test message")

	if !strings.Contains(buf.String(), `"service":"reviews"`) {
		t.Errorf("expected service field in output, got: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Error("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{" error ", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetDefault(t *testing.T) {
	originalDefault := slog.Default()
	defer slog.SetDefault(originalDefault)

	logger := New(slog.LevelInfo, "json")
	SetDefault(logger)

	if slog.Default() != logger.Logger {
		t.Error("SetDefault did not update slog.Default()")
	}
}
