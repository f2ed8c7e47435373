package notify

import (
	"context"
	"fmt"

	"github.com/skintools/empirescan/internal/domain"
)

// OpportunitySink renders enriched opportunities into alert messages and
// hands them to the notifier under the "opportunity" event type.
type OpportunitySink struct {
	notifier     *Notifier
	marketDomain string
}

// NewOpportunitySink creates a sink delivering through notifier. marketDomain
// is the marketplace domain used to build item links.
func NewOpportunitySink(notifier *Notifier, marketDomain string) *OpportunitySink {
	return &OpportunitySink{notifier: notifier, marketDomain: marketDomain}
}

// Notify formats and delivers one opportunity.
func (s *OpportunitySink) Notify(ctx context.Context, item domain.EnrichedItem) error {
	title := fmt.Sprintf("Opportunity: %s", item.Signature.Key())

	kind := "listing"
	if item.IsAuction {
		kind = "auction"
	}

	wear := ""
	if item.Wear > 0 {
		wear = fmt.Sprintf("Wear: %.4f\n", item.Wear)
	}

	message := fmt.Sprintf(
		"Price: $%.2f\nReference: $%.2f\nProfit: %.1f%%\nLiquidity: %.2f\n%sType: %s\nhttps://%s/item/%d",
		item.PriceUSD,
		item.RefPriceUSD,
		item.ProfitPercent,
		item.LiquidityScore,
		wear,
		kind,
		s.marketDomain,
		item.ID,
	)

	return s.notifier.Notify(ctx, "opportunity", title, message)
}

// Compile-time interface check.
var _ domain.NotificationSink = (*OpportunitySink)(nil)
