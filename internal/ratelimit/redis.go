package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared CounterStore. INCR is atomic across processes,
// so concurrent instances agree on the count; the key's TTL carries the
// window deadline.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisOption func(*RedisStore)

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "inkgate:ratelimit:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Incr(ctx context.Context, key string, size time.Duration) (int64, time.Time, error) {
	k := s.prefix + key

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr %q: %w", key, err)
	}

	count := incr.Val()
	remaining := ttl.Val()

	// First request of a window, or a key left without expiry by a crashed
	// writer: stamp the window deadline now.
	if count == 1 || remaining < 0 {
		if err := s.rdb.PExpire(ctx, k, size).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis expire %q: %w", key, err)
		}
		remaining = size
	}

	start := time.Now().Add(remaining - size)
	return count, start, nil
}
