package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/models"
)

// RedisCache implements CacheProvider using Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache provider
func NewRedisCache(logger *zap.Logger) *RedisCache {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}
	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0, // use default DB
	})

	return NewRedisCacheWithClient(client, logger)
}

// NewRedisCacheWithClient creates a Redis cache provider with a custom client
func NewRedisCacheWithClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		client: client,
		ttl:    DefaultTTL,
		logger: logger,
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *RedisCache) Initialize() error {
	ctx := context.Background()
	_, err := c.client.Ping(ctx).Result()
	return err
}

// GetResolution retrieves a resolution from cache if available
func (c *RedisCache) GetResolution(scope, path string) (*models.Resolution, bool) {
	ctx := context.Background()
	data, err := c.client.Get(ctx, getCacheKey(scope, path)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("error reading cached resolution", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}

	var resolution models.Resolution
	if err := json.Unmarshal([]byte(data), &resolution); err != nil {
		return nil, false
	}

	return &resolution, true
}

// SetResolution stores a resolution in cache
func (c *RedisCache) SetResolution(scope, path string, resolution *models.Resolution) {
	ctx := context.Background()
	data, err := json.Marshal(resolution)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, getCacheKey(scope, path), data, c.ttl).Err(); err != nil {
		c.logger.Warn("error caching resolution", zap.String("path", path), zap.Error(err))
	}
}

// InvalidateCache removes every cached resolution
func (c *RedisCache) InvalidateCache() {
	ctx := context.Background()
	iter := c.client.Scan(ctx, 0, "resolve:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("error scanning cached resolutions", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("error invalidating cached resolutions", zap.Error(err))
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *RedisCache) SetCacheTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
