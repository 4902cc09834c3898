package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps secrets as plain Redis string keys.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects lazily to the Redis instance at url
// (redis://[:password@]host:port/db).
func NewRedisStore(url string) (*RedisStore, error) {
	if url == "" {
		return nil, fmt.Errorf("REDIS_URL is required for redis secret backend")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts)), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	val, err := s.client.Get(ctx, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", notFound(name)
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", name, err)
	}
	return val, nil
}

func (s *RedisStore) Put(ctx context.Context, name, value string) error {
	if err := s.client.Set(ctx, name, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
