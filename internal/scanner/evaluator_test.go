package scanner

import (
	"testing"

	"github.com/skintools/empirescan/internal/domain"
)

func TestEvaluate(t *testing.T) {
	e := NewEvaluator(5.0, 0.7, 1.0, 1000.0)

	tests := []struct {
		name       string
		item       domain.NormalizedItem
		ref        domain.ReferenceData
		found      bool
		wantReason domain.RejectReason
		wantProfit float64
	}{
		{
			name:       "clear opportunity",
			item:       domain.NormalizedItem{PriceUSD: 100},
			ref:        domain.ReferenceData{PriceUSD: 120, LiquidityScore: 0.9},
			found:      true,
			wantReason: domain.RejectNone,
			wantProfit: 20,
		},
		{
			name:       "no reference data",
			item:       domain.NormalizedItem{PriceUSD: 100},
			found:      false,
			wantReason: domain.RejectNoReferenceData,
		},
		{
			name:       "zero price rejected before division",
			item:       domain.NormalizedItem{PriceUSD: 0},
			ref:        domain.ReferenceData{PriceUSD: 120, LiquidityScore: 0.9},
			found:      true,
			wantReason: domain.RejectInvalidPrice,
		},
		{
			name:       "negative price",
			item:       domain.NormalizedItem{PriceUSD: -5},
			ref:        domain.ReferenceData{PriceUSD: 120, LiquidityScore: 0.9},
			found:      true,
			wantReason: domain.RejectInvalidPrice,
		},
		{
			name:       "liquidity below threshold",
			item:       domain.NormalizedItem{PriceUSD: 100},
			ref:        domain.ReferenceData{PriceUSD: 120, LiquidityScore: 0.69},
			found:      true,
			wantReason: domain.RejectLowLiquidity,
		},
		{
			name:       "liquidity exactly at threshold passes",
			item:       domain.NormalizedItem{PriceUSD: 100},
			ref:        domain.ReferenceData{PriceUSD: 120, LiquidityScore: 0.7},
			found:      true,
			wantReason: domain.RejectNone,
			wantProfit: 20,
		},
		{
			name:       "profit exactly at threshold passes",
			item:       domain.NormalizedItem{PriceUSD: 100},
			ref:        domain.ReferenceData{PriceUSD: 105, LiquidityScore: 0.9},
			found:      true,
			wantReason: domain.RejectNone,
			wantProfit: 5,
		},
		{
			name:       "profit below threshold",
			item:       domain.NormalizedItem{PriceUSD: 100},
			ref:        domain.ReferenceData{PriceUSD: 104, LiquidityScore: 0.9},
			found:      true,
			wantReason: domain.RejectLowProfit,
		},
		{
			name:       "negative margin",
			item:       domain.NormalizedItem{PriceUSD: 100},
			ref:        domain.ReferenceData{PriceUSD: 80, LiquidityScore: 0.9},
			found:      true,
			wantReason: domain.RejectLowProfit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enriched, reason := e.Evaluate(tt.item, tt.ref, tt.found)
			if reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tt.wantReason)
			}
			if reason != domain.RejectNone {
				return
			}
			if !closeTo(enriched.ProfitPercent, tt.wantProfit) {
				t.Errorf("ProfitPercent = %v, want %v", enriched.ProfitPercent, tt.wantProfit)
			}
			if enriched.RefPriceUSD != tt.ref.PriceUSD {
				t.Errorf("RefPriceUSD = %v, want %v", enriched.RefPriceUSD, tt.ref.PriceUSD)
			}
		})
	}
}

func TestInBand(t *testing.T) {
	e := NewEvaluator(5.0, 0.7, 1.0, 1000.0)

	tests := []struct {
		price float64
		want  bool
	}{
		{0.99, false},
		{1.0, true}, // bounds are inclusive
		{500, true},
		{1000.0, true},
		{1000.01, false},
	}
	for _, tt := range tests {
		item := domain.NormalizedItem{PriceUSD: tt.price}
		if got := e.InBand(item); got != tt.want {
			t.Errorf("InBand(%v) = %v, want %v", tt.price, got, tt.want)
		}
	}
}
