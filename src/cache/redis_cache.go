package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modelmux/modelmux/src/config"
	"github.com/modelmux/modelmux/src/models"
)

// RedisCache is an exact-match response cache. It is an optimization, not
// a store of record; a cold cache only costs latency.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.CacheTTL,
	}, nil
}

// Key derives the cache key for a request. Identical query/context/model
// triples share a key; preferences do not participate because the resolved
// model already reflects them.
func Key(req *models.QueryRequest, resolvedModel string) string {
	data := req.Query + "|" + req.Context + "|" + resolvedModel
	hash := md5.Sum([]byte(data))
	return "route:" + hex.EncodeToString(hash[:])
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.QueryResult, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result models.QueryResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result *models.QueryResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
