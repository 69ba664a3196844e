package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

type memoryItem struct {
	payload  []byte
	expireAt time.Time
	access   time.Time
}

// memoryForecastCache keeps encoded forecasts in process with TTL and LRU
// eviction. Values are stored encoded so callers never share slices.
type memoryForecastCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func NewMemoryForecastCache(ttl time.Duration, maxSize int) ForecastCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &memoryForecastCache{
		data:    make(map[string]*memoryItem),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (c *memoryForecastCache) Backend() string { return "memory" }

func (c *memoryForecastCache) Get(_ context.Context, productID int64, horizon int) (*domain.ForecastResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ForecastKey(productID, horizon)
	item, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	now := c.now()
	if now.After(item.expireAt) {
		delete(c.data, key)
		return nil, false, nil
	}
	item.access = now

	var result domain.ForecastResult
	if err := json.Unmarshal(item.payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &result, true, nil
}

func (c *memoryForecastCache) Set(_ context.Context, horizon int, result *domain.ForecastResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := ForecastKey(result.ProductID, horizon)
	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evict()
	}

	now := c.now()
	c.data[key] = &memoryItem{payload: payload, expireAt: now.Add(c.ttl), access: now}
	return nil
}

func (c *memoryForecastCache) InvalidateProduct(_ context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := forecastProductPrefix(productID)
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
	return nil
}

// evict drops expired entries, or the least recently used one when none expired
func (c *memoryForecastCache) evict() {
	now := c.now()
	var (
		oldestKey  string
		oldestTime time.Time
		expired    bool
	)
	for key, item := range c.data {
		if now.After(item.expireAt) {
			delete(c.data, key)
			expired = true
			continue
		}
		if oldestKey == "" || item.access.Before(oldestTime) {
			oldestKey, oldestTime = key, item.access
		}
	}
	if !expired && oldestKey != "" {
		delete(c.data, oldestKey)
	}
}
