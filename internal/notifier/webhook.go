// Package notifier delivers change alerts to a Discord webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pricewatch/internal/catalog"
	logx "pricewatch/pkg/logx"
)

// ErrNoWebhook means no webhook URL is configured. Notify treats it as a
// logged no-op; Test surfaces it, since the operator asked for a result.
var ErrNoWebhook = errors.New("no webhook configured")

const deliverTimeout = 10 * time.Second

// Webhook posts embeds to the configured Discord webhook. The URL is read
// per call so configuration updates apply without restarting anything.
type Webhook struct {
	url  func() string
	http *http.Client
	log  logx.Logger
}

func New(url func() string, log logx.Logger) *Webhook {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: deliverTimeout},
		log:  log,
	}
}

// Notify delivers a state-transition alert. prev is the last known price
// (nil on an item's first check). Delivery failure is returned for the
// caller to log; it must never affect state or history.
func (w *Webhook) Notify(ctx context.Context, p *catalog.Product, prev *float64, sku string) error {
	url := strings.TrimSpace(w.url())
	if url == "" {
		w.log.Warn("no webhook configured; dropping alert", logx.String("sku", sku))
		return nil
	}

	e := buildAlert(p, prev, sku)
	if err := w.deliver(ctx, url, e); err != nil {
		return err
	}
	w.log.Info("alert sent", logx.String("title", e.Title), logx.String("name", p.Name), logx.String("sku", sku))
	return nil
}

// Test posts the fixed connectivity-test embed and reports the result.
func (w *Webhook) Test(ctx context.Context) error {
	url := strings.TrimSpace(w.url())
	if url == "" {
		return ErrNoWebhook
	}
	return w.deliver(ctx, url, testEmbed())
}

func (w *Webhook) deliver(ctx context.Context, url string, e embed) error {
	body, err := json.Marshal(payload{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
