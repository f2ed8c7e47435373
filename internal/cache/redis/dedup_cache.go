package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/skintools/empirescan/internal/domain"
)

// DedupCache is the shared listing dedup set: SET NX with a TTL makes the
// check-and-record atomic across processes. Errors are returned to the
// caller, which fails open; a Redis outage degrades dedup, never the stream.
type DedupCache struct {
	client *Client
	ttl    time.Duration
}

// NewDedupCache creates a dedup cache with the given TTL window.
func NewDedupCache(client *Client, ttl time.Duration) *DedupCache {
	return &DedupCache{client: client, ttl: ttl}
}

func dedupKey(id int64) string {
	return "seen:" + strconv.FormatInt(id, 10)
}

// Seen records id and reports whether it was already present within the TTL
// window.
func (c *DedupCache) Seen(ctx context.Context, id int64) (bool, error) {
	set, err := c.client.rdb.SetNX(ctx, dedupKey(id), 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: dedup %d: %w", id, err)
	}
	return !set, nil
}

// Compile-time interface check.
var _ domain.DedupCache = (*DedupCache)(nil)
