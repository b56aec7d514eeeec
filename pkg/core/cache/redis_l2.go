package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisL2 implements L2 over go-redis/v9. Constructing one is optional —
// when REDIS_URL is unset, Pipeline wiring simply passes a nil L2 to
// NewTier and this layer is skipped entirely (SPEC_FULL.md §1B).
type RedisL2 struct {
	client *redis.Client
}

// NewRedisL2 dials addr (a redis:// URL) and wraps the resulting client.
func NewRedisL2(addr string) (*RedisL2, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, err
	}
	return &RedisL2{client: redis.NewClient(opts)}, nil
}

// Get implements L2.
func (r *RedisL2) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set implements L2.
func (r *RedisL2) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (r *RedisL2) Close() error {
	return r.client.Close()
}
