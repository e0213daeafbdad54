package cache

import (
	"context"
	"sync"
	"time"

	"github.com/foodlens/backend/internal/domain"
)

// MemoryCacheConfig holds configuration for the in-memory cache
type MemoryCacheConfig struct {
	// MaxEntries bounds the cache; the entry closest to expiry is evicted first
	MaxEntries      int
	CleanupInterval time.Duration
}

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	Value      interface{}
	Expiration time.Time
}

// Stats reports cache effectiveness
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// MemoryCache is a thread-safe in-memory cache with TTL support. Values are
// stored as given, so callers must not mutate them after Set.
type MemoryCache struct {
	data       map[string]cacheItem
	mutex      sync.RWMutex
	maxEntries int
	stats      Stats
	stop       chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

// NewMemoryCache creates a new in-memory cache and starts its cleanup loop
func NewMemoryCache(config MemoryCacheConfig) *MemoryCache {
	interval := config.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	cache := &MemoryCache{
		data:       make(map[string]cacheItem),
		maxEntries: config.MaxEntries,
		stop:       make(chan struct{}),
		now:        time.Now,
	}

	go cache.cleanupExpired(interval)

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, exists := c.data[key]
	if !exists || c.now().After(item.Expiration) {
		c.stats.Misses++
		return nil, domain.ErrCacheMiss
	}

	c.stats.Hits++
	return item.Value, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictOne()
	}

	c.data[key] = cacheItem{
		Value:      value,
		Expiration: c.now().Add(ttl),
	}

	return nil
}

// evictOne drops an expired entry, or the one expiring soonest. Caller holds the lock.
func (c *MemoryCache) evictOne() {
	now := c.now()
	var victim string
	var earliest time.Time

	for key, item := range c.data {
		if now.After(item.Expiration) {
			victim = key
			break
		}
		if victim == "" || item.Expiration.Before(earliest) {
			victim = key
			earliest = item.Expiration
		}
	}

	if victim != "" {
		delete(c.data, victim)
		c.stats.Evictions++
	}
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}

	return !c.now().After(item.Expiration), nil
}

// cleanupExpired removes expired entries periodically until Close is called
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.data {
		if now.After(item.Expiration) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup loop. It is safe to call more than once.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Stats returns a snapshot of the cache counters
func (c *MemoryCache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := c.stats
	stats.Entries = len(c.data)
	return stats
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
