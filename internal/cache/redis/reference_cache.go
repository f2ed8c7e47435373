package redis

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/skintools/empirescan/internal/domain"
)

// ReferenceCache is a read-through cache in front of a slower PriceLookup
// (the Postgres store). Hits and misses are both cached: reference rows churn
// slowly, and a missing row stays missing for a while too. Redis failures
// fall through to the source, so the cache can never make lookups less
// available than the store alone.
type ReferenceCache struct {
	client *Client
	source domain.PriceLookup
	ttl    time.Duration
	logger *slog.Logger
}

// NewReferenceCache wraps source with a cache of the given TTL.
func NewReferenceCache(client *Client, source domain.PriceLookup, ttl time.Duration, logger *slog.Logger) *ReferenceCache {
	return &ReferenceCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "reference_cache")),
	}
}

func referenceKey(sig domain.ItemSignature) string {
	return "ref:" + sig.Key()
}

// Lookup resolves from cache first, then from the source, writing the result
// back best-effort.
func (c *ReferenceCache) Lookup(ctx context.Context, sig domain.ItemSignature) (domain.ReferenceData, bool, error) {
	key := referenceKey(sig)

	vals, err := c.client.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		c.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if len(vals) > 0 {
		if vals["miss"] == "1" {
			return domain.ReferenceData{}, false, nil
		}
		price, perr := strconv.ParseFloat(vals["price"], 64)
		liq, lerr := strconv.ParseFloat(vals["liquidity"], 64)
		if perr == nil && lerr == nil {
			return domain.ReferenceData{PriceUSD: price, LiquidityScore: liq}, true, nil
		}
		// Corrupt entry: fall through and overwrite.
	}

	ref, found, err := c.source.Lookup(ctx, sig)
	if err != nil {
		return domain.ReferenceData{}, false, err
	}
	c.store(ctx, key, ref, found)
	return ref, found, nil
}

func (c *ReferenceCache) store(ctx context.Context, key string, ref domain.ReferenceData, found bool) {
	var fields map[string]interface{}
	if found {
		fields = map[string]interface{}{
			"price":     strconv.FormatFloat(ref.PriceUSD, 'f', -1, 64),
			"liquidity": strconv.FormatFloat(ref.LiquidityScore, 'f', -1, 64),
		}
	} else {
		fields = map[string]interface{}{"miss": "1"}
	}

	pipe := c.client.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Compile-time interface check.
var _ domain.PriceLookup = (*ReferenceCache)(nil)
