package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "weather-notifier:prefs:"

// RedisStore keeps each namespace in one Redis hash so several processes
// (API and scheduler) can share preferences.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisHashKey(namespace string) string {
	return redisKeyPrefix + namespace
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) (string, error) {
	v, err := s.client.HGet(ctx, redisHashKey(namespace), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s/%s: %w", namespace, key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, namespace, key, value string) error {
	if err := s.client.HSet(ctx, redisHashKey(namespace), key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
