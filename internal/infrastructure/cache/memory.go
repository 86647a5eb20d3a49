package cache

import (
	"context"
	"sync"
	"time"

	"github.com/horecawatch/engine/internal/domain"
)

// cacheItem is a single cached match result with its expiration.
type cacheItem struct {
	result     domain.MatchResult
	expiration time.Time
}

// MemoryCache is a thread-safe, bounded in-memory match cache with TTL
// support. When the bound is reached the entry closest to expiry is evicted,
// so a busy batch cannot grow the cache without limit.
type MemoryCache struct {
	data       map[string]cacheItem
	mutex      sync.RWMutex
	maxEntries int
	ttl        time.Duration
}

// NewMemoryCache creates a bounded in-memory match cache. maxEntries below 1
// defaults to 10000 and ttl below 1 to one hour.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries < 1 {
		maxEntries = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	cache := &MemoryCache{
		data:       make(map[string]cacheItem),
		maxEntries: maxEntries,
		ttl:        ttl,
	}

	// Cleanup goroutine to remove expired entries every 10 minutes
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a match result from the cache.
func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.MatchResult, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}
	if time.Now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}

	result := item.result
	return &result, nil
}

// Set stores a match result, evicting the entry closest to expiry when the
// cache is full.
func (c *MemoryCache) Set(ctx context.Context, key string, result domain.MatchResult) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.data[key] = cacheItem{
		result:     result,
		expiration: time.Now().Add(c.ttl),
	}
	return nil
}

// Delete removes a single entry from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheItem)
	return nil
}

// Size returns the current number of entries (for debugging/monitoring).
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

func (c *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, item := range c.data {
		if first || item.expiration.Before(oldest) {
			oldestKey, oldest = key, item.expiration
			first = false
		}
	}
	if !first {
		delete(c.data, oldestKey)
	}
}

// cleanupExpired removes expired entries from the cache periodically.
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}
