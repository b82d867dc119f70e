package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
)

// RedisVault stores the credentials record as a single JSON value in Redis.
// Used when several terminals of one restaurant share a session.
type RedisVault struct {
	client *redis.Client
	key    string
}

// NewRedisVault creates a Redis-backed vault using the given key.
func NewRedisVault(client *redis.Client, key string) *RedisVault {
	return &RedisVault{client: client, key: key}
}

// Load retrieves the credentials record from Redis.
func (v *RedisVault) Load(ctx context.Context) (*domain.Credentials, error) {
	data, err := v.client.Get(ctx, v.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("redis get credentials: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}

	return &creds, nil
}

// Store persists the credentials record to Redis without expiry; the session
// lives until logout clears it.
func (v *RedisVault) Store(ctx context.Context, creds *domain.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := v.client.Set(ctx, v.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set credentials: %w", err)
	}

	return nil
}

// Clear removes the credentials record from Redis.
func (v *RedisVault) Clear(ctx context.Context) error {
	if err := v.client.Del(ctx, v.key).Err(); err != nil {
		return fmt.Errorf("redis del credentials: %w", err)
	}
	return nil
}
