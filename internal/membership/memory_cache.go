package membership

import (
	"sync"
	"time"
)

// memoryCache keeps recent membership answers in process.
type memoryCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	member    bool
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, maxEntries int, now func() time.Time) *memoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &memoryCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memoryCacheEntry),
	}
}

func (c *memoryCache) Get(key string) (bool, bool) {
	if c == nil {
		return false, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, false
	}
	return entry.member, true
}

func (c *memoryCache) Store(key string, member bool) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = memoryCacheEntry{member: member, expiresAt: expiry}
}

func (c *memoryCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *memoryCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}
