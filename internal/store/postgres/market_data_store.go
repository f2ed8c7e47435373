package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skintools/empirescan/internal/domain"
)

// MarketDataStore resolves item signatures against the market_data and
// liquidity tables, keyed by the full market hash name. A row with a NULL
// price or score is a miss: a half-known item cannot anchor a margin.
type MarketDataStore struct {
	pool *pgxpool.Pool
}

// NewMarketDataStore creates a store backed by the given connection pool.
func NewMarketDataStore(pool *pgxpool.Pool) *MarketDataStore {
	return &MarketDataStore{pool: pool}
}

// Lookup fetches the reference price and liquidity score for sig.
func (s *MarketDataStore) Lookup(ctx context.Context, sig domain.ItemSignature) (domain.ReferenceData, bool, error) {
	const query = `
		SELECT m.price_buff163, l.liquidity_score
		FROM market_data m
		JOIN liquidity l ON l.item_name = m.item_name
		WHERE m.item_name = $1`

	var price, score *float64
	err := s.pool.QueryRow(ctx, query, sig.Key()).Scan(&price, &score)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReferenceData{}, false, nil
	}
	if err != nil {
		return domain.ReferenceData{}, false, fmt.Errorf("postgres: lookup %s: %w", sig.Key(), err)
	}

	if price == nil || score == nil {
		return domain.ReferenceData{}, false, nil
	}
	if !isFinite(*price) || !isFinite(*score) {
		return domain.ReferenceData{}, false, nil
	}

	return domain.ReferenceData{PriceUSD: *price, LiquidityScore: *score}, true, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Compile-time interface check.
var _ domain.PriceLookup = (*MarketDataStore)(nil)
