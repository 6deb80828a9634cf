package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "pricewatch/pkg/logx"
)

// SummaryItem is one tracked item's line in the scheduled summary alert.
type SummaryItem struct {
	SKU       string
	Name      string
	Price     *float64 // nil when the item was never checked
	Available bool
}

// Summary posts the scheduled tracked-items digest. Same delivery rules as
// Notify: unconfigured webhook is a logged no-op.
func (w *Webhook) Summary(ctx context.Context, items []SummaryItem) error {
	url := strings.TrimSpace(w.url())
	if url == "" {
		w.log.Warn("no webhook configured; dropping summary")
		return nil
	}
	if err := w.deliver(ctx, url, buildSummary(items)); err != nil {
		return err
	}
	w.log.Info("summary sent", logx.Int("items", len(items)))
	return nil
}

func buildSummary(items []SummaryItem) embed {
	var b strings.Builder
	for _, it := range items {
		name := it.Name
		if name == "" {
			name = "SKU " + it.SKU
		}
		price := "not yet checked"
		if it.Price != nil {
			price = formatUSD(*it.Price)
			if !it.Available {
				price += " (unavailable)"
			}
		}
		fmt.Fprintf(&b, "**%s** — %s\n", name, price)
	}
	if b.Len() == 0 {
		b.WriteString("No tracked items.")
	}

	return embed{
		Title:       "📊 Tracked Items Summary",
		Description: b.String(),
		Color:       colorInfo,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      footer{Text: footerText},
	}
}
