package digest

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache with an optional TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache whose entries expire after ttl.
// A non-positive ttl keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Cache. Expired entries are evicted on read.
func (c *MemoryCache) Get(_ context.Context, interviewID string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[interviewID]
	c.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if e.expired(c.now()) {
		c.mu.Lock()
		delete(c.entries, interviewID)
		c.mu.Unlock()
		return "", false, nil
	}
	return e.digest, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, interviewID, digest string) error {
	e := entry{digest: digest}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[interviewID] = e
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
