package cache

import (
	"sync"
	"time"
)

// Entry represents a cached value with expiration
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time // zero means no expiry
}

func (e *Entry[V]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is a simple in-memory cache with TTL
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]*Entry[V]
	now   func() time.Time
}

// New creates a new cache
func New[V any]() *Cache[V] {
	return &Cache[V]{items: map[string]*Entry[V]{}, now: time.Now}
}

func (c *Cache[V]) entry(value V, ttl time.Duration) *Entry[V] {
	e := &Entry[V]{Value: value}
	if ttl > 0 {
		e.ExpiresAt = c.now().Add(ttl)
	}
	return e
}

// Set stores a value in the cache with a given TTL. A non-positive TTL never expires.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = c.entry(value, ttl)
}

// SetNX stores value only if key is absent or expired and reports whether it did
func (c *Cache[V]) SetNX(key string, value V, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok && !e.expired(c.now()) {
		return false
	}
	c.items[key] = c.entry(value, ttl)
	return true
}

// Get retrieves a value from the cache if it hasn't expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero V
	entry, exists := c.items[key]
	if !exists || entry.expired(c.now()) {
		return zero, false
	}
	return entry.Value, true
}

// Take returns and removes a live value in one step
func (c *Cache[V]) Take(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	entry, exists := c.items[key]
	if !exists {
		return zero, false
	}
	delete(c.items, key)
	if entry.expired(c.now()) {
		return zero, false
	}
	return entry.Value, true
}

// Delete removes a key from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Sweep drops expired entries and returns how many were removed
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
			n++
		}
	}
	return n
}
