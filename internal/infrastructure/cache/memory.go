// Package cache holds short-lived in-process caches for read paths.
package cache

import (
	"sync"
	"time"

	"github.com/purbeurre/backend/internal/domain"
)

// entry is a cached value and the time it stops being served
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryCache is a thread-safe TTL cache.
// Expired entries are never returned and are swept periodically until Close is called.
type MemoryCache[V any] struct {
	mu   sync.RWMutex
	data map[string]entry[V]
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewMemoryCache creates a cache sweeping expired entries every sweepEvery.
// A non-positive sweepEvery disables the sweeper.
func NewMemoryCache[V any](sweepEvery time.Duration) *MemoryCache[V] {
	c := &MemoryCache[V]{
		data: make(map[string]entry[V]),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.sweep(sweepEvery)
	}
	return c
}

// Get returns the value stored under key, or domain.ErrCacheMiss
func (c *MemoryCache[V]) Get(key string) (V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, domain.ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key for ttl
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Len returns the number of stored entries, expired ones included until swept
func (c *MemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close stops the sweeper
func (c *MemoryCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache[V]) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
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

func (c *MemoryCache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.data {
		if !now.Before(e.expiresAt) {
			delete(c.data, key)
		}
	}
}
