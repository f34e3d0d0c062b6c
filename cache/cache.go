// Package cache holds the menu read cache. Invalidation is fire and
// forget: a failed or missing invalidation is at worst a briefly stale
// menu listing, never a correctness problem, because order creation checks
// stock against primary storage.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// MenuCache is the collaborator interface the core depends on. The
// in-memory implementation below is the default; a Redis-backed one can be
// swapped in without touching the services.
type MenuCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Invalidate(key string)
}

// MenuKey is the cache key for a canteen's menu listing.
func MenuKey(canteenID uint) string {
	return fmt.Sprintf("menu:%d", canteenID)
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// TTLCache is a small in-process MenuCache.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewTTLCache() *TTLCache {
	return &TTLCache{entries: make(map[string]entry)}
}

func (c *TTLCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
