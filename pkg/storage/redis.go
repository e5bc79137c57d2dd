package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis.
type RedisStore struct {
	Redis  *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection. Every key
// is namespaced with prefix.
func NewRedisStore(redisURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}

	return &RedisStore{Redis: client, prefix: prefix}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Redis: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.Redis.Close()
}

// Get gets a value by key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.Redis.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

// Set sets a key-value pair with expiration
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.Redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete deletes keys
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.Redis.Del(ctx, full...).Err()
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Redis.Ping(ctx).Err()
}

const scanBatch = 100

// DeletePattern walks the prefixed keyspace with SCAN and deletes matches in
// batches of scanBatch.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	iter := s.Redis.Scan(ctx, 0, s.key(pattern), scanBatch).Iterator()

	deleted := 0
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.Redis.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", pattern, err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan %s: %w", pattern, err)
	}
	return deleted, flush()
}
