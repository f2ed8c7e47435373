// Package scanner is the event ingestion pipeline: routing decoded stream
// events, normalizing listings, enriching them with reference data, and
// evaluating them against the opportunity thresholds.
package scanner

import (
	"strings"
	"time"

	"github.com/skintools/empirescan/internal/domain"
)

// conditions is the closed set of wear condition suffixes that appear in
// market display names.
var conditions = []string{
	"Factory New",
	"Minimal Wear",
	"Field-Tested",
	"Well-Worn",
	"Battle-Scarred",
}

// ParseItemName derives the canonical item signature from a market display
// name. Parsing is total: any input yields a signature, with unknown
// structure collapsing into BaseName and an empty Condition.
func ParseItemName(name string) domain.ItemSignature {
	var sig domain.ItemSignature

	name = strings.TrimSpace(name)

	// The trademark form is what the marketplace sends; the plain form shows
	// up in older reference rows.
	if strings.HasPrefix(name, "StatTrak™ ") {
		sig.StatTrak = true
		name = strings.TrimPrefix(name, "StatTrak™ ")
	} else if strings.HasPrefix(name, "StatTrak ") {
		sig.StatTrak = true
		name = strings.TrimPrefix(name, "StatTrak ")
	}

	if strings.HasPrefix(name, "Souvenir ") {
		sig.Souvenir = true
		name = strings.TrimPrefix(name, "Souvenir ")
	}

	// A trailing "(...)" is only a wear condition if it matches the closed
	// set; names like "Sticker (Holo)" keep their parenthetical.
	if strings.HasSuffix(name, ")") {
		if i := strings.LastIndex(name, " ("); i >= 0 {
			candidate := name[i+2 : len(name)-1]
			for _, c := range conditions {
				if candidate == c {
					sig.Condition = c
					name = name[:i]
					break
				}
			}
		}
	}

	sig.BaseName = strings.TrimSpace(name)
	return sig
}

// Normalizer converts raw listings into normalized items, translating coin
// minor units into USD.
type Normalizer struct {
	coinToUSD float64
	now       func() time.Time
}

// NewNormalizer creates a normalizer with the given coin→USD conversion
// factor. A non-positive factor falls back to the published default.
func NewNormalizer(coinToUSD float64) *Normalizer {
	if coinToUSD <= 0 {
		coinToUSD = 0.614
	}
	return &Normalizer{coinToUSD: coinToUSD, now: time.Now}
}

// Normalize converts a raw listing. The purchase price is authoritative; the
// market value is only a fallback for listings that arrive without one.
func (n *Normalizer) Normalize(raw domain.RawListing) domain.NormalizedItem {
	price := raw.PurchasePrice
	if price == 0 {
		price = raw.MarketValue
	}

	return domain.NormalizedItem{
		ID:                raw.ID,
		Signature:         ParseItemName(raw.MarketName),
		PriceUSD:          n.coinsToUSD(price),
		SuggestedPriceUSD: n.coinsToUSD(raw.SuggestedPrice),
		Wear:              raw.Wear,
		IsAuction:         raw.AuctionEndsAt > 0,
		ReceivedAt:        n.now(),
	}
}

// coinsToUSD converts coin minor units (cents of coins) into USD.
func (n *Normalizer) coinsToUSD(minor int64) float64 {
	return float64(minor) / 100 * n.coinToUSD
}
