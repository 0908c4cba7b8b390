package cache

import (
	"sync"
	"time"
)

// MemoryCache is an in-memory map whose entries go stale after a TTL.
// A TTL of zero keeps entries until they are deleted.
type MemoryCache[K comparable, V any] struct {
	entries map[K]entry[V]
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache[K comparable, V any](ttl time.Duration) *MemoryCache[K, V] {
	return &MemoryCache[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache[K, V]) fresh(e entry[V]) bool {
	return c.ttl <= 0 || c.now().Sub(e.fetchedAt) <= c.ttl
}

// Get retrieves a cached value if fresh
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set caches a value
func (c *MemoryCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		fetchedAt: c.now(),
	}
}

// Touch restarts the TTL of an existing entry.
func (c *MemoryCache[K, V]) Touch(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return false
	}
	e.fetchedAt = c.now()
	c.entries[key] = e
	return true
}

// Delete removes an entry and returns it.
func (c *MemoryCache[K, V]) Delete(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	delete(c.entries, key)
	return e.value, exists
}

// EvictExpired removes every stale entry and returns the evicted values so
// the caller can release them.
func (c *MemoryCache[K, V]) EvictExpired() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []V
	for k, e := range c.entries {
		if !c.fresh(e) {
			evicted = append(evicted, e.value)
			delete(c.entries, k)
		}
	}
	return evicted
}

// Len returns the number of entries, fresh or not.
func (c *MemoryCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all cached data and returns it.
func (c *MemoryCache[K, V]) Clear() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, len(c.entries))
	for _, e := range c.entries {
		values = append(values, e.value)
	}
	c.entries = make(map[K]entry[V])
	return values
}
