package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dedup:generation:"

// Redis-backed store. TTL expiry is native, so memory is bounded
// without a sweep and the window survives process restarts.
type RedisStore struct {
	client *redis.Client
}

// creates a store on an existing Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// reports whether key was recorded within the TTL window
func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}

	return n > 0, nil
}

// remembers key from now for the TTL window. SETNX keeps the
// first-seen timestamp when two requests race on the same key.
func (s *RedisStore) Record(ctx context.Context, key string) error {
	if err := s.client.SetNX(ctx, keyPrefix+key, 1, TTL).Err(); err != nil {
		return fmt.Errorf("failed to record dedup key: %w", err)
	}

	return nil
}
