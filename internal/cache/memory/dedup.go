// Package memory provides the in-process fallback dedup cache, used when no
// Redis is configured.
package memory

import (
	"context"
	"sync"
	"time"
)

// DedupCache is a TTL set over listing ids. Expired entries are swept lazily
// on access, so memory stays bounded by the churn inside one TTL window.
type DedupCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	seen      map[int64]time.Time
	lastSweep time.Time
}

// NewDedupCache creates a cache with the given TTL window.
func NewDedupCache(ttl time.Duration) *DedupCache {
	return &DedupCache{
		ttl:  ttl,
		now:  time.Now,
		seen: map[int64]time.Time{},
	}
}

// Seen records id and reports whether it was already present within the TTL
// window. Check and insert are atomic under the lock, so concurrent callers
// agree on which one saw the id first.
func (c *DedupCache) Seen(_ context.Context, id int64) (bool, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) > c.ttl {
		for k, at := range c.seen {
			if now.Sub(at) > c.ttl {
				delete(c.seen, k)
			}
		}
		c.lastSweep = now
	}

	if at, ok := c.seen[id]; ok && now.Sub(at) <= c.ttl {
		return true, nil
	}
	c.seen[id] = now
	return false, nil
}
