package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const ProductCacheTTL = 10 * time.Minute

const catalogPrefix = "catalog:"

// ProductCache keeps rendered catalog queries in Redis. A miss is reported as
// ok=false; only transport faults are errors.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = ProductCacheTTL
	}
	return &ProductCache{client: client, ttl: ttl}
}

// Get decodes the value cached under key into dst.
func (c *ProductCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, catalogPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		c.client.Del(ctx, catalogPrefix+key)
		return false, nil
	}
	return true, nil
}

func (c *ProductCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogPrefix+key, data, c.ttl).Err()
}

// Invalidate drops every cached catalog query.
func (c *ProductCache) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, catalogPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
