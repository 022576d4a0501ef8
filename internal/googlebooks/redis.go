package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// lookupKeyPrefix is the Redis key prefix for cached searches.
	lookupKeyPrefix = "lookup:"

	// DefaultCacheTTL is how long a search result stays cached.
	DefaultCacheTTL = time.Hour
)

// RedisCache keeps search results in Redis so repeated autofill searches do
// not spend Google Books quota.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache backed by client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// ConnectRedis creates a Redis client and verifies it with a ping.
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Get returns the cached results for query, if any.
func (c *RedisCache) Get(ctx context.Context, query string) (Results, bool, error) {
	data, err := c.client.Get(ctx, lookupKeyPrefix+query).Bytes()
	if errors.Is(err, redis.Nil) {
		return Results{}, false, nil
	}
	if err != nil {
		return Results{}, false, fmt.Errorf("redis get: %w", err)
	}

	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return Results{}, false, fmt.Errorf("decode cached lookup: %w", err)
	}
	return results, true, nil
}

// Set stores results for query.
func (c *RedisCache) Set(ctx context.Context, query string, results Results) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode lookup: %w", err)
	}
	if err := c.client.Set(ctx, lookupKeyPrefix+query, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
