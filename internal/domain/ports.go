package domain

import (
	"context"
	"time"
)

// PriceLookup resolves an item signature to reference price and liquidity.
// found is false when either value is absent; the caller must treat a miss as
// a hard rejection, never as a fallback-accept.
type PriceLookup interface {
	Lookup(ctx context.Context, sig ItemSignature) (ref ReferenceData, found bool, err error)
}

// DedupCache is a short-TTL set over listing ids. Seen atomically records the
// id on first sight and reports whether it was already present within the TTL
// window.
type DedupCache interface {
	Seen(ctx context.Context, id int64) (bool, error)
}

// RateLimiter bounds how often an action keyed by a string may run inside a
// sliding window. Allow counts the request when it is admitted.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// NotificationSink accepts a fully-enriched opportunity for delivery.
// Delivery failure is the sink's problem to log or retry; the pipeline never
// blocks or crashes on it.
type NotificationSink interface {
	Notify(ctx context.Context, item EnrichedItem) error
}
