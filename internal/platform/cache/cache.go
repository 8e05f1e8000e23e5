// Package cache provides an in-memory caching layer with TTL and LRU eviction.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache defines the interface for a generic cache
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found, nil and false otherwise.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	// If ttl is 0, the item never expires.
	Set(key string, value interface{}, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Size returns the current number of items in the cache.
	Size() int

	// Capacity returns the maximum number of items the cache can hold.
	Capacity() int
}

// entry represents a cached item with its expiration deadline
type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache implements an in-memory LRU cache with per-entry TTL support.
// LRU bookkeeping is delegated to hashicorp's lru implementation; expiration
// is layered on top because entries carry individual TTLs.
type MemoryCache struct {
	mu       sync.RWMutex // guards capacity
	capacity int
	inner    *lru.Cache[string, *entry]
}

// NewMemoryCache creates a new in-memory cache with the specified capacity.
// When the cache reaches capacity, the least recently used item is evicted.
//
// Example:
//
//	cache := cache.NewMemoryCache(100) // cache with capacity of 100 items
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 100 // default capacity
	}

	inner, _ := lru.New[string, *entry](capacity)

	return &MemoryCache{
		capacity: capacity,
		inner:    inner,
	}
}

// Get retrieves a value from the cache.
// If the item exists and hasn't expired, it's marked as recently used.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	e, exists := c.inner.Get(key)
	if !exists {
		return nil, false
	}

	if e.expired(time.Now()) {
		c.inner.Remove(key)
		return nil, false
	}

	return e.value, true
}

// Set stores a value in the cache with a TTL.
// If the key already exists, its value and TTL are updated.
// If ttl is 0, the item never expires.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.inner.Add(key, &entry{value: value, expiresAt: expiresAt})
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.inner.Remove(key)
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.inner.Purge()
}

// Size returns the current number of items in the cache.
func (c *MemoryCache) Size() int {
	return c.inner.Len()
}

// Capacity returns the maximum number of items the cache can hold.
func (c *MemoryCache) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capacity
}

// SetCapacity changes the cache capacity.
// If the new capacity is smaller than the current size, LRU items are evicted.
func (c *MemoryCache) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = 1
	}

	c.mu.Lock()
	c.capacity = capacity
	c.mu.Unlock()

	c.inner.Resize(capacity)
}

// CleanExpired removes all expired items from the cache.
// This can be called periodically to free up memory.
func (c *MemoryCache) CleanExpired() int {
	now := time.Now()
	removed := 0

	// Peek does not refresh recency, so sweeping leaves LRU order intact.
	for _, key := range c.inner.Keys() {
		e, exists := c.inner.Peek(key)
		if !exists {
			continue
		}
		if e.expired(now) {
			c.inner.Remove(key)
			removed++
		}
	}

	return removed
}

// Keys returns all keys currently in the cache (excluding expired items).
func (c *MemoryCache) Keys() []string {
	now := time.Now()
	all := c.inner.Keys()
	keys := make([]string, 0, len(all))

	for _, key := range all {
		e, exists := c.inner.Peek(key)
		if !exists {
			continue
		}
		if e.expired(now) {
			continue
		}
		keys = append(keys, key)
	}

	return keys
}

// StartCleanupWorker starts a background goroutine that periodically
// removes expired items from the cache.
//
// The worker runs every interval duration and calls CleanExpired().
// Returns a function that can be called to stop the worker.
//
// Example:
//
//	cache := cache.NewMemoryCache(100)
//	stop := cache.StartCleanupWorker(5 * time.Minute)
//	defer stop() // Stop the worker when done
func (c *MemoryCache) StartCleanupWorker(interval time.Duration) func() {
	stopChan := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				c.CleanExpired()
			case <-stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	// Return stop function
	return func() {
		close(stopChan)
	}
}
