package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, sessionID string, p Provider) (string, error) {
	tok, err := r.client.Get(ctx, key(sessionID, p)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return tok, nil
}

func (r *RedisStore) Set(ctx context.Context, sessionID string, p Provider, token string) error {
	if err := r.client.Set(ctx, key(sessionID, p), token, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string, p Provider) error {
	if err := r.client.Del(ctx, key(sessionID, p)).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}
