package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps window counters in redis, so limits hold across
// instances. INCR is atomic; the TTL is attached on the first hit of each
// window.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "rl:"}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := s.prefix + key

	count, err := s.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr counter: %w", err)
	}

	if count == 1 {
		// Window keys are boundary-stamped, so a fixed TTL of one window
		// is enough to expire them after the window closes.
		if err := s.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, fmt.Errorf("expire counter: %w", err)
		}
	}

	return count, nil
}
