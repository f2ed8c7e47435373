package scanner

import (
	"math"

	"github.com/skintools/empirescan/internal/domain"
)

// Evaluator applies the opportunity thresholds to an enriched listing.
// Thresholds are inclusive: an item exactly at the minimum passes.
type Evaluator struct {
	minProfitPercent  float64
	minLiquidityScore float64
	minPriceUSD       float64
	maxPriceUSD       float64
}

// NewEvaluator creates an evaluator with the given thresholds.
func NewEvaluator(minProfit, minLiquidity, minPrice, maxPrice float64) *Evaluator {
	return &Evaluator{
		minProfitPercent:  minProfit,
		minLiquidityScore: minLiquidity,
		minPriceUSD:       minPrice,
		maxPriceUSD:       maxPrice,
	}
}

// InBand reports whether the listing's price sits within the configured band,
// bounds included. Applied before enrichment so out-of-band items never cost
// a lookup.
func (e *Evaluator) InBand(item domain.NormalizedItem) bool {
	return item.PriceUSD >= e.minPriceUSD && item.PriceUSD <= e.maxPriceUSD
}

// Evaluate combines a normalized item with its reference data and classifies
// it. A reference-data miss is a hard rejection: without an external anchor a
// margin cannot be trusted. The price guard runs before any division so a
// zero or negative listing price can never produce an infinite margin.
func (e *Evaluator) Evaluate(item domain.NormalizedItem, ref domain.ReferenceData, found bool) (domain.EnrichedItem, domain.RejectReason) {
	if !found {
		return domain.EnrichedItem{}, domain.RejectNoReferenceData
	}
	if item.PriceUSD <= 0 || math.IsNaN(item.PriceUSD) || math.IsInf(item.PriceUSD, 0) {
		return domain.EnrichedItem{}, domain.RejectInvalidPrice
	}
	if ref.LiquidityScore < e.minLiquidityScore {
		return domain.EnrichedItem{}, domain.RejectLowLiquidity
	}

	profit := (ref.PriceUSD - item.PriceUSD) / item.PriceUSD * 100
	if profit < e.minProfitPercent {
		return domain.EnrichedItem{}, domain.RejectLowProfit
	}

	return domain.EnrichedItem{
		NormalizedItem: item,
		RefPriceUSD:    ref.PriceUSD,
		LiquidityScore: ref.LiquidityScore,
		ProfitPercent:  profit,
	}, domain.RejectNone
}
