package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pricewatch/internal/storage"
	logx "pricewatch/pkg/logx"
)

// Masked replaces secrets in config snapshots handed to external callers.
const Masked = "***configured***"

// Config returns a defensive copy of the configuration document with
// secrets masked. Only the engine sees the real credential.
func (t *Tracker) Config(ctx context.Context) *storage.Config {
	cfg := t.store.LoadConfig(ctx)
	if cfg.APIKey != "" {
		cfg.APIKey = Masked
	}
	if cfg.WebhookURL != "" {
		cfg.WebhookURL = Masked
	}
	return cfg
}

// Updates carries a partial settings change; nil fields are untouched.
type Updates struct {
	APIKey                *string
	WebhookURL            *string
	PollInterval          *int
	NotifyOnAnyChange     *bool
	NotifyOnPriceDropOnly *bool
	SummarySchedule       *string
}

// UpdateSettings validates and applies a partial update, persisting the
// document synchronously. Masked values posted back from a config read are
// ignored, so round-tripping a snapshot never clobbers a secret.
func (t *Tracker) UpdateSettings(ctx context.Context, u Updates) error {
	if u.PollInterval != nil && *u.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive number of seconds")
	}
	if u.SummarySchedule != nil && *u.SummarySchedule != "" {
		if _, err := ParseSummarySchedule(*u.SummarySchedule); err != nil {
			return fmt.Errorf("summary_schedule: %w", err)
		}
	}

	t.cfgMu.Lock()
	defer t.cfgMu.Unlock()

	cfg := t.store.LoadConfig(ctx)
	changed := []string{}

	if u.APIKey != nil && !strings.HasPrefix(*u.APIKey, "***") {
		cfg.APIKey = *u.APIKey
		changed = append(changed, "api_key")
	}
	if u.WebhookURL != nil && !strings.HasPrefix(*u.WebhookURL, "***") {
		cfg.WebhookURL = *u.WebhookURL
		changed = append(changed, "webhook_url")
	}
	if u.PollInterval != nil {
		cfg.PollInterval = *u.PollInterval
		changed = append(changed, "poll_interval")
	}
	if u.NotifyOnAnyChange != nil {
		cfg.NotifyOnAnyChange = *u.NotifyOnAnyChange
		changed = append(changed, "notify_on_any_change")
	}
	if u.NotifyOnPriceDropOnly != nil {
		cfg.NotifyOnPriceDropOnly = *u.NotifyOnPriceDropOnly
		changed = append(changed, "notify_on_price_drop_only")
	}
	if u.SummarySchedule != nil {
		cfg.SummarySchedule = *u.SummarySchedule
		changed = append(changed, "summary_schedule")
	}

	if len(changed) == 0 {
		return nil
	}
	if err := t.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	t.log.Info("settings updated", logx.Any("fields", changed))
	return nil
}

// AddItem starts tracking a SKU. When no display name is given it is
// resolved with one catalog fetch, falling back to a generic placeholder
// on any failure (missing credential included).
func (t *Tracker) AddItem(ctx context.Context, sku, name string) (storage.ItemConfig, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return storage.ItemConfig{}, errors.New("sku is required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		apiKey := t.store.LoadConfig(ctx).APIKey
		if p, err := t.fetch.Fetch(ctx, apiKey, sku); err == nil && p.Name != "" {
			name = p.Name
		} else {
			name = "SKU " + sku
		}
	}

	t.cfgMu.Lock()
	defer t.cfgMu.Unlock()

	cfg := t.store.LoadConfig(ctx)
	item := storage.ItemConfig{Name: name, Enabled: true}
	cfg.SKUs[sku] = item
	if err := t.store.SaveConfig(ctx, cfg); err != nil {
		return storage.ItemConfig{}, err
	}
	t.log.Info("sku added", logx.String("sku", sku), logx.String("name", name))
	return item, nil
}

// RemoveItem stops tracking a SKU. Stale state for it is retained but no
// longer updated. Returns false when the SKU was not tracked.
func (t *Tracker) RemoveItem(ctx context.Context, sku string) (bool, error) {
	t.cfgMu.Lock()
	defer t.cfgMu.Unlock()

	cfg := t.store.LoadConfig(ctx)
	if _, ok := cfg.SKUs[sku]; !ok {
		return false, nil
	}
	delete(cfg.SKUs, sku)
	if err := t.store.SaveConfig(ctx, cfg); err != nil {
		return false, err
	}
	t.log.Info("sku removed", logx.String("sku", sku))
	return true, nil
}

// SetItemEnabled toggles a tracked SKU. Returns false when not tracked.
func (t *Tracker) SetItemEnabled(ctx context.Context, sku string, enabled bool) (bool, error) {
	t.cfgMu.Lock()
	defer t.cfgMu.Unlock()

	cfg := t.store.LoadConfig(ctx)
	item, ok := cfg.SKUs[sku]
	if !ok {
		return false, nil
	}
	item.Enabled = enabled
	cfg.SKUs[sku] = item
	if err := t.store.SaveConfig(ctx, cfg); err != nil {
		return false, err
	}
	return true, nil
}

// State returns the current state snapshot, one record per SKU that has
// been successfully checked at least once.
func (t *Tracker) State(ctx context.Context) map[string]storage.StateRecord {
	return t.store.LoadState(ctx)
}

// History returns up to limit entries for one SKU, oldest first.
func (t *Tracker) History(ctx context.Context, sku string, limit int) []storage.HistoryEntry {
	return t.store.GetHistory(ctx, sku, limit)
}

// AllHistory returns bounded history for every SKU that has any.
func (t *Tracker) AllHistory(ctx context.Context, limit int) map[string][]storage.HistoryEntry {
	return t.store.AllHistory(ctx, limit)
}

// TestWebhook fires the fixed connectivity-test payload.
func (t *Tracker) TestWebhook(ctx context.Context) error {
	return t.alert.Test(ctx)
}
