package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricewatch/internal/catalog"
	"pricewatch/internal/storage"
	logx "pricewatch/pkg/logx"
)

// RunPass checks every enabled tracked SKU once: fetch, compare against
// last-known state, append history, decide on an alert, persist the new
// snapshot. Per-item failures are isolated; an error from one SKU never
// aborts the rest of the pass.
//
// Only one pass runs at a time. A caller racing a scheduled pass gets
// ErrPassRunning immediately.
func (t *Tracker) RunPass(ctx context.Context) error {
	select {
	case <-t.runGate:
	default:
		return ErrPassRunning
	}
	defer func() { t.runGate <- struct{}{} }()

	cfg := t.store.LoadConfig(ctx)
	if cfg.APIKey == "" {
		return fmt.Errorf("run pass: %w", catalog.ErrNoAPIKey)
	}

	state := t.store.LoadState(ctx)
	for sku, item := range cfg.SKUs {
		if !item.Enabled {
			continue
		}
		t.checkItem(ctx, cfg, state, sku, item)
	}
	return nil
}

// checkItem performs one fetch-compare-persist-alert cycle. Ordering is
// deliberate: history append, then name refresh, then state overwrite,
// then the alert attempt. A failed delivery can never roll back state.
func (t *Tracker) checkItem(ctx context.Context, cfg *storage.Config, state map[string]storage.StateRecord, sku string, item storage.ItemConfig) {
	p, err := t.fetch.Fetch(ctx, cfg.APIKey, sku)
	if err != nil {
		var nf *catalog.NotFoundError
		if errors.As(err, &nf) {
			t.log.Warn("product not found", logx.String("sku", sku))
		} else {
			t.log.Error("catalog check failed", logx.String("sku", sku), logx.Err(err))
		}
		return
	}

	var prev *float64
	if rec, ok := state[sku]; ok {
		prev = rec.Price
	}

	name := p.Name
	if name == "" {
		name = item.Name
	}

	t.log.Info("checked",
		logx.String("sku", sku),
		logx.String("name", name),
		logx.Float64("price", p.SalePrice),
		logx.Bool("available", p.Available),
	)

	// History is appended on every successful check, changed or not.
	entry := storage.HistoryEntry{Timestamp: time.Now(), Price: p.SalePrice, Available: p.Available}
	if err := t.store.AppendHistory(ctx, sku, entry); err != nil {
		// History happens-before state: without the entry we leave the
		// old snapshot alone and let the next pass try again.
		t.log.Error("history append failed", logx.String("sku", sku), logx.Err(err))
		return
	}

	if name != "" && name != item.Name {
		t.refreshName(ctx, sku, name)
	}

	price := p.SalePrice
	state[sku] = storage.StateRecord{
		Price:        &price,
		RegularPrice: p.RegularPrice,
		Available:    p.Available,
		OnSale:       p.OnSale,
		Name:         name,
		LastCheck:    time.Now(),
		URL:          p.URL,
	}
	if err := t.store.SaveState(ctx, state); err != nil {
		t.log.Error("state save failed", logx.String("sku", sku), logx.Err(err))
		return
	}

	if shouldNotify(prev, p.SalePrice, cfg) {
		if err := t.alert.Notify(ctx, p, prev, sku); err != nil {
			t.log.Error("alert delivery failed", logx.String("sku", sku), logx.Err(err))
		}
	}
}

// shouldNotify applies the notification policy. The first observed check
// always notifies; an unchanged price never does. On a change, the
// drop-only flag takes precedence over the any-change flag.
func shouldNotify(prev *float64, cur float64, cfg *storage.Config) bool {
	if prev == nil {
		return true
	}
	if cur == *prev {
		return false
	}
	if cfg.NotifyOnPriceDropOnly {
		return cur < *prev
	}
	return cfg.NotifyOnAnyChange
}

// refreshName persists a catalog-resolved display name into the config
// document when it differs from what is on record.
func (t *Tracker) refreshName(ctx context.Context, sku, name string) {
	t.cfgMu.Lock()
	defer t.cfgMu.Unlock()

	cfg := t.store.LoadConfig(ctx)
	item, ok := cfg.SKUs[sku]
	if !ok || item.Name == name {
		return
	}
	item.Name = name
	cfg.SKUs[sku] = item
	if err := t.store.SaveConfig(ctx, cfg); err != nil {
		t.log.Error("config save failed", logx.String("sku", sku), logx.Err(err))
	}
}
