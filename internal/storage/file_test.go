package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "pricewatch/pkg/logx"
)

func newFileStore(t *testing.T) Store {
	t.Helper()
	s, err := Open(Options{Driver: "file", Dir: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadConfigDefaultsOnFirstRun(t *testing.T) {
	t.Parallel()
	s := newFileStore(t)

	cfg := s.LoadConfig(context.Background())
	if cfg.PollInterval != 60 {
		t.Fatalf("PollInterval = %d, want 60", cfg.PollInterval)
	}
	if !cfg.NotifyOnAnyChange || cfg.NotifyOnPriceDropOnly {
		t.Fatalf("unexpected notify flags: any=%v drop=%v", cfg.NotifyOnAnyChange, cfg.NotifyOnPriceDropOnly)
	}
	item, ok := cfg.SKUs["6513602"]
	if !ok {
		t.Fatal("expected seed SKU 6513602 in defaults")
	}
	if item.Name != "Epson LS800 Black" || !item.Enabled {
		t.Fatalf("unexpected seed item: %+v", item)
	}
}

func TestLoadConfigDefaultsOnCorruptDocument(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s, err := Open(Options{Driver: "file", Dir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	cfg := s.LoadConfig(context.Background())
	if cfg.PollInterval != 60 || len(cfg.SKUs) != 1 {
		t.Fatalf("corrupt document should fall back to defaults, got %+v", cfg)
	}
}

func TestLoadConfigDefaultsMissingNotifyFlag(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// A document from before the notify flags existed: absent key must
	// default on, not silence alerts.
	doc := `{"bestbuy_api_key": "k", "poll_interval": 60, "skus": {"1": {"name": "A", "enabled": true}}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(doc), 0o600); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	s, err := Open(Options{Driver: "file", Dir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	cfg := s.LoadConfig(context.Background())
	if !cfg.NotifyOnAnyChange {
		t.Fatal("missing notify_on_any_change should default to true")
	}
	if cfg.NotifyOnPriceDropOnly {
		t.Fatal("missing notify_on_price_drop_only should default to false")
	}
	if len(cfg.SKUs) != 1 {
		t.Fatalf("defaulting must not merge the seed SKU: %+v", cfg.SKUs)
	}
}

func TestLoadConfigKeepsExplicitFalse(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	doc := `{"notify_on_any_change": false, "skus": {}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(doc), 0o600); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	s, err := Open(Options{Driver: "file", Dir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.LoadConfig(context.Background()).NotifyOnAnyChange {
		t.Fatal("explicit false must survive a load")
	}
}

func TestSaveLoadConfigRoundTrip(t *testing.T) {
	t.Parallel()
	s := newFileStore(t)
	ctx := context.Background()

	cfg := s.LoadConfig(ctx)
	cfg.APIKey = "k-123"
	cfg.PollInterval = 120
	cfg.SKUs["1111111"] = ItemConfig{Name: "Widget", Enabled: false}
	if err := s.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got := s.LoadConfig(ctx)
	if got.APIKey != "k-123" || got.PollInterval != 120 {
		t.Fatalf("round trip lost settings: %+v", got)
	}
	if item := got.SKUs["1111111"]; item.Name != "Widget" || item.Enabled {
		t.Fatalf("round trip lost item: %+v", item)
	}
}

func TestStateRoundTripPreservesNilPrice(t *testing.T) {
	t.Parallel()
	s := newFileStore(t)
	ctx := context.Background()

	price := 99.99
	state := map[string]StateRecord{
		"a": {Price: &price, Available: true, Name: "A", LastCheck: time.Now()},
		"b": {Price: nil, Name: "B"},
	}
	if err := s.SaveState(ctx, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got := s.LoadState(ctx)
	if got["a"].Price == nil || *got["a"].Price != 99.99 {
		t.Fatalf("price lost: %+v", got["a"])
	}
	if got["b"].Price != nil {
		t.Fatalf("nil price not preserved: %+v", got["b"])
	}
}

func TestLoadStateEmptyOnFirstRun(t *testing.T) {
	t.Parallel()
	s := newFileStore(t)
	if got := s.LoadState(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty state, got %d records", len(got))
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	t.Parallel()
	s := newFileStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		e := HistoryEntry{Timestamp: base.Add(time.Duration(i) * time.Minute), Price: float64(i)}
		if err := s.AppendHistory(ctx, "sku1", e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	all := s.GetHistory(ctx, "sku1", 0)
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Price <= all[i-1].Price {
			t.Fatalf("history not in append order: %v", all)
		}
	}

	last2 := s.GetHistory(ctx, "sku1", 2)
	if len(last2) != 2 || last2[0].Price != 3 || last2[1].Price != 4 {
		t.Fatalf("limit should keep the newest entries, got %v", last2)
	}
}

func TestHistoryCapDropsOldest(t *testing.T) {
	t.Parallel()
	s := newFileStore(t)
	ctx := context.Background()

	for i := 0; i < HistoryCap+5; i++ {
		if err := s.AppendHistory(ctx, "sku1", HistoryEntry{Price: float64(i)}); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	got := s.GetHistory(ctx, "sku1", 0)
	if len(got) != HistoryCap {
		t.Fatalf("len = %d, want %d", len(got), HistoryCap)
	}
	if got[0].Price != 5 {
		t.Fatalf("oldest retained price = %v, want 5 (oldest dropped first)", got[0].Price)
	}
	if got[len(got)-1].Price != float64(HistoryCap+4) {
		t.Fatalf("newest retained price = %v", got[len(got)-1].Price)
	}
}

func TestHistoryIsolatedPerSKU(t *testing.T) {
	t.Parallel()
	s := newFileStore(t)
	ctx := context.Background()

	_ = s.AppendHistory(ctx, "a", HistoryEntry{Price: 1})
	_ = s.AppendHistory(ctx, "b", HistoryEntry{Price: 2})
	_ = s.AppendHistory(ctx, "b", HistoryEntry{Price: 3})

	all := s.AllHistory(ctx, 0)
	if len(all["a"]) != 1 || len(all["b"]) != 2 {
		t.Fatalf("unexpected per-SKU counts: a=%d b=%d", len(all["a"]), len(all["b"]))
	}
	if got := s.GetHistory(ctx, "missing", 0); len(got) != 0 {
		t.Fatalf("expected no history for unknown SKU, got %v", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Options{Driver: "bolt", Dir: t.TempDir()}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
