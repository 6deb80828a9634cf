// Package catalog fetches product data from the Best Buy products API.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	logx "pricewatch/pkg/logx"
)

const (
	defaultBaseURL = "https://api.bestbuy.com/v1"
	defaultTimeout = 30 * time.Second

	// Best Buy's published API quota is 5 requests per second.
	defaultRatePerSec = 5

	// showFields is the exact projection the tracker needs, nothing more.
	showFields = "sku,name,salePrice,regularPrice,onSale,dollarSavings,percentSavings,onlineAvailability,url"

	maxBodyBytes = 1 << 20
)

// Product is one catalog lookup result.
type Product struct {
	SKU            string
	Name           string
	SalePrice      float64
	RegularPrice   float64
	DollarSavings  float64
	PercentSavings float64
	OnSale         bool
	Available      bool
	URL            string
}

// Options tunes the client. Zero values pick the defaults above.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec int
}

// Client issues one request per Fetch call. It never retries: the next
// scheduled pass is the retry.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	log     logx.Logger
}

func New(opts Options, log logx.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec),
		log:     log,
	}
}

// Fetch looks up one SKU. Error kinds: ErrNoAPIKey when the credential is
// missing, *NotFoundError for unknown SKUs, *StatusError for other non-2xx
// responses, wrapped transport errors otherwise.
func (c *Client) Fetch(ctx context.Context, apiKey, sku string) (*Product, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("apiKey", apiKey)
	q.Set("show", showFields)
	reqURL := fmt.Sprintf("%s/products/%s.json?%s", c.baseURL, url.PathEscape(sku), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{SKU: sku}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{SKU: sku, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("catalog response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("catalog: sku %s: invalid JSON response", sku)
	}

	doc := gjson.ParseBytes(body)
	p := &Product{
		SKU:            sku,
		Name:           doc.Get("name").String(),
		SalePrice:      doc.Get("salePrice").Float(),
		RegularPrice:   doc.Get("regularPrice").Float(),
		DollarSavings:  doc.Get("dollarSavings").Float(),
		PercentSavings: doc.Get("percentSavings").Float(),
		OnSale:         doc.Get("onSale").Bool(),
		Available:      doc.Get("onlineAvailability").Bool(),
		URL:            doc.Get("url").String(),
	}

	c.log.Debug("catalog fetch",
		logx.String("sku", sku),
		logx.Float64("sale_price", p.SalePrice),
		logx.Bool("available", p.Available),
	)
	return p, nil
}
