package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, err := New("", "", &buf)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		logger.Info("hello", "equipment_id", 3)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected JSON output, got %q", buf.String())
		}
		if entry["msg"] != "hello" || entry["equipment_id"] != float64(3) {
			t.Fatalf("unexpected entry %v", entry)
		}
	})

	t.Run("text honours level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, err := New("warn", "TEXT", &buf)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		logger.Info("hidden")
		logger.Warn("shown")

		out := buf.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
			t.Fatalf("unexpected output %q", out)
		}
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		t.Parallel()
		if _, err := New("verbose", "json", &bytes.Buffer{}); err == nil {
			t.Fatalf("expected level error")
		}
		if _, err := New("info", "xml", &bytes.Buffer{}); err == nil {
			t.Fatalf("expected format error")
		}
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if FromContext(ctx) != nil {
		t.Fatalf("expected no logger in empty context")
	}
	if RequestIDFromContext(ctx) != "" {
		t.Fatalf("expected no request ID in empty context")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx = ContextWithLogger(ctx, logger)
	ctx = ContextWithRequestID(ctx, "req-1")

	if FromContext(ctx) != logger {
		t.Fatalf("expected logger to round-trip")
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected request ID, got %q", got)
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatalf("expected nil logger to leave context unchanged")
	}
}
