package lock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewRedisLocker(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisLocker(nil, RedisOptions{}, nil); err == nil {
		t.Fatalf("expected error for nil client")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	defer client.Close()

	locker, err := NewRedisLocker(client, RedisOptions{TTL: time.Minute}, nil)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	opts := locker.Options()
	if opts.TTL != time.Minute {
		t.Fatalf("expected explicit TTL to be kept, got %v", opts.TTL)
	}
	if opts.Prefix != DefaultRedisOptions().Prefix || opts.RetryInterval != DefaultRedisOptions().RetryInterval {
		t.Fatalf("expected defaults for zero fields, got %#v", opts)
	}
}

// TestRedisLocker_Integration needs a reachable server in LABINV_TEST_REDIS_ADDR.
func TestRedisLocker_Integration(t *testing.T) {
	addr := os.Getenv("LABINV_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LABINV_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	locker, err := NewRedisLocker(client, RedisOptions{
		Prefix:        "labinventory:test:" + t.Name() + ":",
		TTL:           5 * time.Second,
		RetryInterval: 5 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}

	unlock, err := locker.Lock(context.Background(), "equipment:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "equipment:1"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired while held, got %v", err)
	}

	unlock()

	again, err := locker.Lock(context.Background(), "equipment:1")
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	again()
}
