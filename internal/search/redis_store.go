package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flight-booking/internal/model"
)

// RedisStore keeps search results in Redis so several instances share one
// cache.  Expiry is delegated to Redis key TTLs, which gives the same
// absent-after-expiry contract as MemoryStore.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisStore namespaces keys as "<prefix>:search:<fingerprint>".
func NewRedisStore(rdb redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "flights"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(fp string) string {
	return s.prefix + ":search:" + fp
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]model.NormalizedFlight, bool, error) {
	bs, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var out []model.NormalizedFlight
	if err := json.Unmarshal(bs, &out); err != nil {
		// unreadable payloads count as a miss; the next Put replaces them
		return nil, false, nil
	}
	return out, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []model.NormalizedFlight, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	bs, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := s.rdb.SetEx(ctx, s.key(key), bs, ttl).Err(); err != nil {
		return fmt.Errorf("redis setex: %w", err)
	}
	return nil
}
