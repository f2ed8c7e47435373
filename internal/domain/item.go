package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// RawListing is a single item offer as delivered by the marketplace event
// stream. Prices are in coin minor units (cents of marketplace coins).
// Instances are transient: they live only for the pipeline call that
// consumes them.
type RawListing struct {
	ID             int64           `json:"id"`
	MarketName     string          `json:"market_name"`
	PurchasePrice  int64           `json:"purchase_price"`
	SuggestedPrice int64           `json:"suggested_price"`
	MarketValue    int64           `json:"market_value"`
	Wear           float64         `json:"wear"`
	WearName       string          `json:"wear_name"`
	AuctionEndsAt  int64           `json:"auction_ends_at"`
	AuctionBid     int64           `json:"auction_highest_bid"`
	AuctionBids    int             `json:"auction_number_of_bids"`
	PublishedAt    string          `json:"published_at"`
	ItemSearch     json.RawMessage `json:"item_search"`
}

// ItemSignature is the canonical parsed identity of an item, derived
// deterministically from its display name and used as the lookup key for
// reference price and liquidity. Parsing is total: every display name yields
// a signature, with Condition possibly empty.
type ItemSignature struct {
	BaseName  string
	StatTrak  bool
	Souvenir  bool
	Condition string
}

// Key reconstructs the market hash name used as the item key by the
// reference-data tables, e.g. "StatTrak™ AK-47 | Redline (Field-Tested)".
func (s ItemSignature) Key() string {
	key := s.BaseName
	if s.StatTrak {
		key = "StatTrak™ " + key
	}
	if s.Souvenir {
		key = "Souvenir " + key
	}
	if s.Condition != "" {
		key += " (" + s.Condition + ")"
	}
	return key
}

// NormalizedItem is a listing after name parsing and price conversion.
// Created by the normalizer, consumed once by the pipeline, never retained.
type NormalizedItem struct {
	ID                int64
	Signature         ItemSignature
	PriceUSD          float64
	SuggestedPriceUSD float64
	Wear              float64
	IsAuction         bool
	ReceivedAt        time.Time
}

// ReferenceData is the pair returned by a successful price/liquidity lookup.
// Both values are finite; a partial row counts as a miss.
type ReferenceData struct {
	PriceUSD       float64
	LiquidityScore float64
}

// EnrichedItem is a NormalizedItem together with its reference data and the
// computed profit margin. It exists only between enrichment and delivery.
type EnrichedItem struct {
	NormalizedItem
	RefPriceUSD    float64
	LiquidityScore float64
	ProfitPercent  float64
}

// ListingRef is a compact identifier for log lines.
func (n NormalizedItem) ListingRef() string {
	return n.Signature.Key() + "#" + strconv.FormatInt(n.ID, 10)
}

// RejectReason classifies why a listing was dropped by the pipeline. Per-item
// rejections never propagate past the item being evaluated.
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectNoReferenceData RejectReason = "no_reference_data"
	RejectInvalidPrice    RejectReason = "invalid_price"
	RejectLowLiquidity    RejectReason = "low_liquidity"
	RejectLowProfit       RejectReason = "low_profit"
	RejectPriceOutOfBand  RejectReason = "price_out_of_band"
	RejectDuplicate       RejectReason = "duplicate"
)
