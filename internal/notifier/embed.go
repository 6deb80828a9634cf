package notifier

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pricewatch/internal/catalog"
)

// Discord webhook payload shapes. Only the subset the tracker sends.

type payload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Footer      footer  `json:"footer"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type footer struct {
	Text string `json:"text"`
}

const (
	colorInfo = 0x0099FF
	colorDrop = 0x00FF00
	colorRise = 0xFF0000

	footerText = "Best Buy Price Tracker"
)

// classify maps the previous/current price pair to the alert presentation.
func classify(prev *float64, cur float64) (title string, color int) {
	switch {
	case prev == nil:
		return "📢 Now Tracking", colorInfo
	case cur < *prev:
		return "🔻 PRICE DROP", colorDrop
	case cur > *prev:
		return "🔺 Price Increase", colorRise
	default:
		return "📢 Status Update", colorInfo
	}
}

var usd = message.NewPrinter(language.English)

func formatUSD(v float64) string { return usd.Sprintf("$%.2f", v) }

// buildAlert renders the change alert embed for one product.
func buildAlert(p *catalog.Product, prev *float64, sku string) embed {
	title, color := classify(prev, p.SalePrice)

	fields := []field{
		{Name: "Current Price", Value: "**" + formatUSD(p.SalePrice) + "**", Inline: true},
		{Name: "Regular Price", Value: formatUSD(p.RegularPrice), Inline: true},
	}

	if prev != nil && *prev != p.SalePrice {
		diff := *prev - p.SalePrice
		fields = append(fields, field{Name: "Change", Value: usd.Sprintf("$%+.2f", diff), Inline: true})
	}
	if p.OnSale && p.DollarSavings > 0 {
		fields = append(fields, field{
			Name:   "Sale Savings",
			Value:  usd.Sprintf("%s (%.0f%% off)", formatUSD(p.DollarSavings), p.PercentSavings),
			Inline: true,
		})
	}

	availability := "❌ No"
	if p.Available {
		availability = "✅ Yes"
	}
	fields = append(fields,
		field{Name: "Available Online", Value: availability, Inline: true},
		field{Name: "SKU", Value: sku, Inline: true},
	)

	e := embed{
		Title:       title,
		Description: "**" + p.Name + "**",
		Color:       color,
		Fields:      fields,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      footer{Text: footerText},
	}
	if p.URL != "" {
		e.URL = p.URL
	}
	return e
}

// testEmbed is the fixed payload of the webhook connectivity test.
func testEmbed() embed {
	return embed{
		Title:       "🧪 Test Alert",
		Description: "Your Discord webhook is working!",
		Color:       colorInfo,
		Footer:      footer{Text: footerText},
	}
}
