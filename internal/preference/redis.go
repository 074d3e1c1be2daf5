package preference

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pref:v1:"

// RedisStore keeps preferences in Redis under a per-session namespace.
type RedisStore struct {
	cache     *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStore builds a store scoped to namespace. A zero ttl keeps values
// until they are overwritten.
func NewRedisStore(cache *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: cache, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) key(k Key) string {
	return keyPrefix + s.namespace + ":" + string(k)
}

func (s *RedisStore) Get(ctx context.Context, key Key) (string, bool, error) {
	v, err := s.cache.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key Key, value string) error {
	return s.cache.Set(ctx, s.key(key), value, s.ttl).Err()
}
