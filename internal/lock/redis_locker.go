package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when a Redis lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock: not acquired")

// releaseScript deletes the key only when it still holds our token, so a lock that
// expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tunes a RedisLocker.
type RedisOptions struct {
	// Prefix is prepended to every lock key.
	Prefix string
	// TTL bounds how long a crashed holder can block a key.
	TTL time.Duration
	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration
}

// DefaultRedisOptions returns the options used when none are supplied.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:        "labinventory:lock:",
		TTL:           10 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

// RedisLocker implements keyed locks with SET NX PX and a token checked on release.
type RedisLocker struct {
	client  redis.UniversalClient
	options RedisOptions
	logger  *slog.Logger
}

// NewRedisLocker constructs a locker on top of client. Zero option fields fall back
// to DefaultRedisOptions.
func NewRedisLocker(client redis.UniversalClient, options RedisOptions, logger *slog.Logger) (*RedisLocker, error) {
	if client == nil {
		return nil, fmt.Errorf("lock: redis client is required")
	}
	defaults := DefaultRedisOptions()
	if options.Prefix == "" {
		options.Prefix = defaults.Prefix
	}
	if options.TTL <= 0 {
		options.TTL = defaults.TTL
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = defaults.RetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, options: options, logger: logger}, nil
}

// Options returns the effective options.
func (l *RedisLocker) Options() RedisOptions {
	return l.options
}

// Lock polls until key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.options.Prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.options.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.options.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctxErr)
			}
			return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlockFunc(redisKey, token string) func() {
	return func() {
		// The caller's context may already be cancelled; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), l.options.TTL)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", "key", redisKey, "error", err)
		}
	}
}
