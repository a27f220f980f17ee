package subscription

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 5 * time.Minute

// Cache holds recently read accounts. A miss or error falls through to the
// repository.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (*Account, error)
	Set(ctx context.Context, a *Account) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func cacheKey(userID uuid.UUID) string { return "subscription:" + userID.String() }

// Get returns (nil, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (*Account, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *RedisCache) Set(ctx context.Context, a *Account) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(a.UserID), raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Del(ctx, cacheKey(userID)).Err()
}
