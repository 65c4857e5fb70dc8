package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/src/config"
	"github.com/modelmux/modelmux/src/models"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cfg := &config.RedisConfig{
		Address:  mr.Addr(),
		Password: "",
		DB:       0,
		CacheTTL: time.Hour,
	}

	cache, err := NewRedisCache(cfg)
	require.NoError(t, err)

	return cache, mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	key := Key(&models.QueryRequest{Query: "what is routing"}, "gpt-4o")

	result := &models.QueryResult{
		Response:   "routing is model selection",
		Model:      "gpt-4o",
		Usage:      models.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		Cost:       0.0003,
		DurationMs: 120,
		Timestamp:  time.Now(),
	}

	err := cache.Set(ctx, key, result)
	assert.NoError(t, err)

	retrieved, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, result.Response, retrieved.Response)
	assert.Equal(t, result.Model, retrieved.Model)
	assert.Equal(t, result.Usage.TotalTokens, retrieved.Usage.TotalTokens)
}

func TestRedisCache_GetNonExistent(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	retrieved, err := cache.Get(context.Background(), "route:nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	key := "route:delete-me"

	cache.Set(ctx, key, &models.QueryResult{Response: "bye"})
	err := cache.Delete(ctx, key)
	assert.NoError(t, err)

	retrieved, _ := cache.Get(ctx, key)
	assert.Nil(t, retrieved)
}

func TestRedisCache_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := &config.RedisConfig{
		Address:  mr.Addr(),
		CacheTTL: 1 * time.Second,
	}

	cache, err := NewRedisCache(cfg)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	key := "route:expiring"

	cache.Set(ctx, key, &models.QueryResult{Response: "short-lived"})

	mr.FastForward(2 * time.Second)

	retrieved, _ := cache.Get(ctx, key)
	assert.Nil(t, retrieved, "key should be expired")
}

func TestKey_Deterministic(t *testing.T) {
	req1 := &models.QueryRequest{Query: "q", Context: "c"}
	req2 := &models.QueryRequest{Query: "q", Context: "c"}
	req3 := &models.QueryRequest{Query: "different", Context: "c"}

	assert.Equal(t, Key(req1, "m1"), Key(req2, "m1"))
	assert.NotEqual(t, Key(req1, "m1"), Key(req3, "m1"))
	assert.NotEqual(t, Key(req1, "m1"), Key(req1, "m2"), "same query on another model is a different key")
}
