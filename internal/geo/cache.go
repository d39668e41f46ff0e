package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, ip string) (string, bool)
	Set(ctx context.Context, ip string, location string, ttl time.Duration)
}

type memoryEntry struct {
	location string
	expires  time.Time
}

// MemoryCache is the default backend: a mutex-guarded map with per-entry
// deadlines, safe for concurrent request handlers.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, ip string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[ip]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return "", false
	}
	return entry.location, true
}

func (c *MemoryCache) Set(_ context.Context, ip string, location string, ttl time.Duration) {
	c.mu.Lock()
	c.entries[ip] = memoryEntry{location: location, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// RedisCache shares lookups across replicas when REDIS_ADDR is configured.
// Failures behave like misses; the lookup service is the fallback.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func geoKey(ip string) string {
	return fmt.Sprintf("geo:ip:%s", ip)
}

func (c *RedisCache) Get(ctx context.Context, ip string) (string, bool) {
	value, err := c.client.Get(ctx, geoKey(ip)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		return "", false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, ip string, location string, ttl time.Duration) {
	_ = c.client.Set(ctx, geoKey(ip), location, ttl).Err()
}
