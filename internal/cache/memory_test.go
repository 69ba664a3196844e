package cache

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forecastFor(productID int64) *domain.ForecastResult {
	return &domain.ForecastResult{
		ProductID: productID,
		Predictions: []domain.ForecastPoint{
			{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), PredictedDemand: 4, Confidence: 0.8, UpperBound: 6, LowerBound: 2},
		},
		Accuracy:    0.8,
		ModelType:   domain.ModelStatistical,
		GeneratedAt: time.Date(2025, 5, 31, 10, 0, 0, 0, time.UTC),
	}
}

func TestForecastKey(t *testing.T) {
	assert.Equal(t, "forecast:12:30", ForecastKey(12, 30))
}

func TestMemoryForecastCache_RoundTrip(t *testing.T) {
	c := NewMemoryForecastCache(time.Hour, 10)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1, 30)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 30, forecastFor(1)))
	got, ok, err := c.Get(ctx, 1, 30)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, forecastFor(1), got)

	_, ok, _ = c.Get(ctx, 1, 7)
	assert.False(t, ok, "horizons are cached independently")
}

func TestMemoryForecastCache_Expiry(t *testing.T) {
	c := NewMemoryForecastCache(time.Minute, 10).(*memoryForecastCache)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 30, forecastFor(1)))
	now = now.Add(2 * time.Minute)

	_, ok, err := c.Get(ctx, 1, 30)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryForecastCache_InvalidateProduct(t *testing.T) {
	c := NewMemoryForecastCache(time.Hour, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 7, forecastFor(1)))
	require.NoError(t, c.Set(ctx, 30, forecastFor(1)))
	require.NoError(t, c.Set(ctx, 30, forecastFor(11)))

	require.NoError(t, c.InvalidateProduct(ctx, 1))

	for _, h := range []int{7, 30} {
		_, ok, _ := c.Get(ctx, 1, h)
		assert.False(t, ok)
	}
	_, ok, _ := c.Get(ctx, 11, 30)
	assert.True(t, ok, "product 11 shares a digit prefix but must survive")
}

func TestMemoryForecastCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryForecastCache(time.Hour, 2).(*memoryForecastCache)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 30, forecastFor(1)))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, 30, forecastFor(2)))
	now = now.Add(time.Second)
	_, _, _ = c.Get(ctx, 1, 30)
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, 30, forecastFor(3)))

	_, ok, _ := c.Get(ctx, 2, 30)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, 1, 30)
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, 3, 30)
	assert.True(t, ok)
}

func TestNewForecastCache_Backend(t *testing.T) {
	cfg := config.Default().Cache
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	cfg.Enabled = false
	assert.Equal(t, "memory", NewForecastCache(cfg, client).Backend())

	cfg.Enabled = true
	assert.Equal(t, "memory", NewForecastCache(cfg, nil).Backend())
	assert.Equal(t, "redis", NewForecastCache(cfg, client).Backend())
}
