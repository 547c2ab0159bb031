package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realestate/internal/config"
	"realestate/internal/logger"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	RedisClient = client
	logger.Info("redis connected")
	return client, nil
}

const estimateFeeKey = "market:estimate-fee"

// FeeCache keeps the last computed gas fee estimate.
type FeeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFeeCache(client *redis.Client, ttl time.Duration) *FeeCache {
	return &FeeCache{client: client, ttl: ttl}
}

// Get returns the cached fee; ok is false on a miss.
func (c *FeeCache) Get(ctx context.Context) (string, bool, error) {
	v, err := c.client.Get(ctx, estimateFeeKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *FeeCache) Set(ctx context.Context, fee string) error {
	return c.client.Set(ctx, estimateFeeKey, fee, c.ttl).Err()
}
