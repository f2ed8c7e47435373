package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/skintools/empirescan/internal/domain"
)

type captureSender struct {
	title, message string
}

func (c *captureSender) Send(_ context.Context, title, message string) error {
	c.title, c.message = title, message
	return nil
}

func (c *captureSender) Name() string { return "capture" }

func TestOpportunitySinkRendersItem(t *testing.T) {
	rec := &captureSender{}
	n := NewNotifier([]Sender{rec}, []string{"opportunity"}, testLogger())
	sink := NewOpportunitySink(n, "csgoempire.com")

	item := domain.EnrichedItem{
		NormalizedItem: domain.NormalizedItem{
			ID: 1234,
			Signature: domain.ItemSignature{
				BaseName:  "AK-47 | Redline",
				Condition: "Field-Tested",
			},
			PriceUSD:  61.4,
			Wear:      0.23,
			IsAuction: true,
		},
		RefPriceUSD:    80,
		LiquidityScore: 0.9,
		ProfitPercent:  30.29,
	}

	if err := sink.Notify(context.Background(), item); err != nil {
		t.Fatalf("Notify error = %v", err)
	}

	if !strings.Contains(rec.title, "AK-47 | Redline (Field-Tested)") {
		t.Errorf("title = %q, missing item name", rec.title)
	}
	for _, want := range []string{"$61.40", "$80.00", "30.3%", "Wear: 0.2300", "auction", "https://csgoempire.com/item/1234"} {
		if !strings.Contains(rec.message, want) {
			t.Errorf("message missing %q:\n%s", want, rec.message)
		}
	}
}
