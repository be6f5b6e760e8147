package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ref := "evt:checkin:9001"
	value := []byte(`{"transaction_id":"0.0.2@1756400000.123456789","new_balance":100}`)

	// Get before set => nil
	result, err := cache.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Set
	err = cache.Set(ctx, ref, value, 24*time.Hour)
	require.NoError(t, err)

	// Get after set
	result, err = cache.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ref := "evt:donation:4410"

	err := cache.Set(ctx, ref, []byte(`{"status":"CONFIRMED"}`), 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired ref should return nil")
}

func TestIdempotencyCache_OverwriteRef(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	ref := "evt:redeem:77"

	err := cache.Set(ctx, ref, []byte("first"), 1*time.Hour)
	require.NoError(t, err)

	err = cache.Set(ctx, ref, []byte("second"), 1*time.Hour)
	require.NoError(t, err)

	result, err := cache.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), result)
}
