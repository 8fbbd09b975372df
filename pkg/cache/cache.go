// Package cache provides a thread-safe in-memory cache with TTL support.
// It is used to memoize expensive detector results, such as font coverage
// analysis keyed by font path and modification time.
package cache

import (
	"sync"
	"time"
)

// Cache is a thread-safe in-memory cache with TTL support.
type Cache[V any] struct {
	items map[string]item[V]
	mu    sync.RWMutex
}

type item[V any] struct {
	value      V
	expiration int64
}

// New creates a new cache instance
func New[V any]() *Cache[V] {
	return &Cache[V]{
		items: make(map[string]item[V]),
	}
}

// Set adds an item to the cache with the specified TTL.
// A zero or negative TTL stores the item without expiry.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}
	c.items[key] = item[V]{
		value:      value,
		expiration: expiration,
	}
}

// Get retrieves an item from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, found := c.items[key]
	if !found {
		return zero, false
	}

	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		delete(c.items, key)
		return zero, false
	}

	return it.value, true
}

// Delete removes an item from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]item[V])
}

// ItemCount returns the number of items in the cache
func (c *Cache[V]) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// GetWithFunc retrieves an item from the cache or calls the provided function
// to compute and store it.
func (c *Cache[V]) GetWithFunc(key string, ttl time.Duration, fn func() (V, error)) (V, error) {
	if val, found := c.Get(key); found {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, val, ttl)
	return val, nil
}
