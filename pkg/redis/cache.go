package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides JSON caching on top of Client
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value; found is false on miss or when disabled
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.rdb.Get(ctx, c.fullKey(key)).Bytes()
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

	return c.client.rdb.Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.rdb.Del(ctx, c.fullKey(key)).Err()
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 장중 갱신
	TTLMedium = 10 * time.Minute // 기본 리포트
	TTLDaily  = 24 * time.Hour   // 마감 리포트
)

// ReportKey identifies one analysis result:
// (portfolio, time range, benchmark set, profile hash)
// 벤치마크 순서는 키에 영향 없음
func ReportKey(portfolioID, rangeKey string, benchmarks []string, profileHash string) string {
	sorted := append([]string(nil), benchmarks...)
	sort.Strings(sorted)

	hash := profileHash
	if len(hash) > 12 {
		hash = hash[:12]
	}

	return fmt.Sprintf("report:%s:%s:%s:%s", portfolioID, rangeKey, strings.Join(sorted, ","), hash)
}

// LatestReportKey points at the most recent report of a portfolio
func LatestReportKey(portfolioID string) string {
	return fmt.Sprintf("report:%s:latest", portfolioID)
}
