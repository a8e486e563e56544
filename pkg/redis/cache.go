package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the backing client is enabled
func (c *Cache) Enabled() bool {
	return c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	// Try cache first
	found, err := c.Get(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	// Cache miss (or unreadable entry) - call function
	value, err := fn()
	if err != nil {
		return err
	}

	// Store in cache; a failed write still returns the fresh value
	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Keys lists cached keys (without prefix) matching a glob pattern
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !c.client.Enabled() {
		return []string{}, nil
	}

	if pattern == "" {
		pattern = "*"
	}

	base := c.fullKey("")
	keys := []string{}
	var cursor uint64
	for {
		batch, next, err := c.client.Redis().Scan(ctx, cursor, base+pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("cache scan failed: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, base))
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	return keys, nil
}

// Clear removes every key under this cache's prefix and returns the count
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.Keys(ctx, "*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}

	n, err := c.client.Redis().Del(ctx, full...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache clear failed: %w", err)
	}
	return int(n), nil
}

// Predefined TTLs
const (
	TTLSeries = 5 * time.Minute // 일봉 시세 (캐시 프록시와 동일)
	TTLName   = 24 * time.Hour  // 종목명
	TTLPick   = 24 * time.Hour  // 오늘의 종목
)

// Common cache key generators

// SeriesKey caches one transport's daily series for a code as of date (YYYY-MM-DD)
func SeriesKey(transport, code, date string) string {
	return fmt.Sprintf("series:%s:%s:%s", transport, code, date)
}

// TodayPickKey caches the pick of a calendar day
func TodayPickKey(date string) string {
	return fmt.Sprintf("pick:today:%s", date)
}

// CompanyNameKey caches a scraped company name
func CompanyNameKey(code string) string {
	return fmt.Sprintf("stock:name:%s", code)
}
