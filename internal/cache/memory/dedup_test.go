package memory

import (
	"context"
	"testing"
	"time"
)

func TestDedupCacheSeen(t *testing.T) {
	now := time.Now()
	c := NewDedupCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	ctx := context.Background()

	seen, err := c.Seen(ctx, 1)
	if err != nil {
		t.Fatalf("Seen error = %v", err)
	}
	if seen {
		t.Error("first sighting reported as seen")
	}

	seen, _ = c.Seen(ctx, 1)
	if !seen {
		t.Error("second sighting not reported as seen")
	}

	seen, _ = c.Seen(ctx, 2)
	if seen {
		t.Error("distinct id reported as seen")
	}
}

func TestDedupCacheExpiry(t *testing.T) {
	now := time.Now()
	c := NewDedupCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	c.Seen(ctx, 1)

	// Still inside the window.
	now = now.Add(4 * time.Minute)
	if seen, _ := c.Seen(ctx, 1); !seen {
		t.Error("id expired before the TTL")
	}

	// The re-sighting refreshed nothing; past the window it reads as new.
	now = now.Add(6 * time.Minute)
	if seen, _ := c.Seen(ctx, 1); seen {
		t.Error("id still seen after the TTL")
	}
}

func TestDedupCacheSweep(t *testing.T) {
	now := time.Now()
	c := NewDedupCache(time.Minute)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for id := int64(0); id < 100; id++ {
		c.Seen(ctx, id)
	}

	// Crossing the TTL triggers the lazy sweep on the next access.
	now = now.Add(2 * time.Minute)
	c.Seen(ctx, 1000)

	c.mu.Lock()
	size := len(c.seen)
	c.mu.Unlock()
	if size != 1 {
		t.Errorf("map size after sweep = %d, want 1", size)
	}
}
