package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a shared Redis instance, for deployments
// where cached research data should survive process restarts and be
// shared across replicas.
type RedisStore struct {
	client *backend.Client
}

// NewRedisStore creates a store connected to the given address.
func NewRedisStore(address, password string, db int) *RedisStore {
	return &RedisStore{
		client: backend.NewClient(&backend.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisStoreFromClient creates a store from an existing client.
func NewRedisStoreFromClient(client *backend.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves a value by key.
func (s *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Put stores a value with the given TTL. Redis owns the expiry.
func (s *RedisStore) Put(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error {
	return s.client.Set(ctx, key, []byte(value), ttl).Err()
}

// Delete removes keys. Missing keys are not an error.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
