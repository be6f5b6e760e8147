package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
//
// It is a fast path in front of the confirmed-transactions table: once an
// app event ref settles, the serialized result is cached here so replays
// skip both Postgres and the ledger entirely. A cache miss is never an
// error, the durable table remains the source of truth.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "eventref:",
	}
}

// Get retrieves a cached result by app event ref.
// Returns nil, nil if the ref has not been cached.
func (c *IdempotencyCache) Get(ctx context.Context, ref string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+ref).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis event ref get: %w", err)
	}
	return val, nil
}

// Set stores a settled result under its app event ref with TTL.
func (c *IdempotencyCache) Set(ctx context.Context, ref string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+ref, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis event ref set: %w", err)
	}
	return nil
}
