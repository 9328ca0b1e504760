package redisimpl

import (
	"context"
	"errors"
	"fmt"
	"insta-pics/photoshare"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entries written without a persistent backend never expire. In front of a
// persistent backend Redis only caches them for cacheTTL.
const cacheTTL = 10 * time.Minute

func NewRedisStorage(
	client *redis.Client,
	persistentStorage photoshare.Storage,
) *RedisStorage {

	return &RedisStorage{
		client:            client,
		persistentStorage: persistentStorage,
	}
}

// RedisStorage is either the durable store itself (persistentStorage nil) or
// a write-through, read-through cache in front of persistentStorage.
type RedisStorage struct {
	client            *redis.Client
	persistentStorage photoshare.Storage
}

func (r RedisStorage) ttl() time.Duration {
	if r.persistentStorage == nil {
		return 0
	}
	return cacheTTL
}

// Load reads from Redis and falls back to the persistent backend, refilling
// the cache on a hit there.
func (r RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, redis.Nil) && r.persistentStorage == nil {
		return nil, fmt.Errorf("redis get %s: %v - %w", key, err, photoshare.ErrStorage)
	}
	if r.persistentStorage == nil {
		return nil, photoshare.ErrNotFound
	}

	value, err = r.persistentStorage.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = r.client.Set(ctx, key, value, r.ttl()).Err()
	return value, nil
}

// Save writes through to the persistent backend first, then to Redis.
func (r RedisStorage) Save(ctx context.Context, key string, value []byte) error {
	if r.persistentStorage != nil {
		if err := r.persistentStorage.Save(ctx, key, value); err != nil {
			return err
		}
		_ = r.client.Set(ctx, key, value, r.ttl()).Err()
		return nil
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %v - %w", key, err, photoshare.ErrStorage)
	}
	return nil
}

// IsReady checks Redis and, when present, the persistent backend.
func (r RedisStorage) IsReady(ctx context.Context) bool {
	if r.client == nil {
		return false
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return false
	}
	if r.persistentStorage == nil {
		return true
	}
	return r.persistentStorage.IsReady(ctx)
}
