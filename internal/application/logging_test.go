package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/lab-inventory/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "conflict", err: newConflictError(1, []int64{2}), want: "conflict"},
		{name: "in use", err: fmt.Errorf("delete: %w", ErrInUse), want: "in_use"},
		{name: "not found", err: ErrNotFound, want: "not_found"},
		{name: "validation", err: &ValidationError{Message: MessageMissingFields}, want: "validation"},
		{name: "unexpected", err: errors.New("disk full"), want: "unexpected"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tt.err); got != tt.want {
				t.Fatalf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogOutcome(t *testing.T) {
	t.Parallel()

	t.Run("expected failures log at warn", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		logOutcome(context.Background(), logger, ErrNotFound, "failed", "done")

		out := buf.String()
		if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error_kind=not_found") {
			t.Fatalf("expected warn entry with error kind, got %q", out)
		}
	})

	t.Run("unexpected failures log at error", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		logOutcome(context.Background(), logger, errors.New("boom"), "failed", "done")

		if out := buf.String(); !strings.Contains(out, "level=ERROR") {
			t.Fatalf("expected error entry, got %q", out)
		}
	})

	t.Run("success logs at info with attributes", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		logOutcome(context.Background(), logger, nil, "failed", "done", "reservation_id", int64(4))

		out := buf.String()
		if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "reservation_id=4") {
			t.Fatalf("expected info entry with attributes, got %q", out)
		}
	})
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewTextHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&scoped, nil)))

	serviceLogger(ctx, baseLogger, "ReservationService", "CreateReservation").Info("hello")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay unused, got %q", base.String())
	}
	out := scoped.String()
	if !strings.Contains(out, "service=ReservationService") || !strings.Contains(out, "operation=CreateReservation") {
		t.Fatalf("expected service attributes, got %q", out)
	}
}
