package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const forecastKeyPrefix = "forecast"

// ForecastCache stores computed forecasts per product and horizon
type ForecastCache interface {
	Get(ctx context.Context, productID int64, horizon int) (*domain.ForecastResult, bool, error)
	Set(ctx context.Context, horizon int, result *domain.ForecastResult) error
	InvalidateProduct(ctx context.Context, productID int64) error
	Backend() string
}

// ForecastKey is the cache key of a product forecast for one horizon
func ForecastKey(productID int64, horizon int) string {
	return fmt.Sprintf("%s:%d:%d", forecastKeyPrefix, productID, horizon)
}

func forecastProductPrefix(productID int64) string {
	return fmt.Sprintf("%s:%d:", forecastKeyPrefix, productID)
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewForecastCache returns a redis backed cache when caching is enabled and a
// client is available, otherwise an in-process one.
func NewForecastCache(cfg config.CacheConfig, client *redis.Client) ForecastCache {
	if !cfg.Enabled {
		return NewMemoryForecastCache(cfg.ForecastTTL(), cfg.MemoryMaxEntries)
	}
	if client == nil {
		log.Warn().Msg("Redis client missing, falling back to in-memory forecast cache")
		return NewMemoryForecastCache(cfg.ForecastTTL(), cfg.MemoryMaxEntries)
	}
	return NewRedisForecastCache(client, cfg.ForecastTTL())
}

func NewRedisForecastCache(client *redis.Client, ttl time.Duration) ForecastCache {
	return &redisForecastCache{client: client, ttl: ttl}
}

func (c *redisForecastCache) Backend() string { return "redis" }

func (c *redisForecastCache) Get(ctx context.Context, productID int64, horizon int) (*domain.ForecastResult, bool, error) {
	payload, err := c.client.Get(ctx, ForecastKey(productID, horizon)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ForecastResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, horizon int, result *domain.ForecastResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}
	if err := c.client.Set(ctx, ForecastKey(result.ProductID, horizon), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateProduct(ctx context.Context, productID int64) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastProductPrefix(productID), scanBatchSize)
}
