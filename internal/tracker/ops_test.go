package tracker

import (
	"context"
	"testing"

	"pricewatch/internal/storage"
)

func strp(s string) *string { return &s }
func intp(v int) *int       { return &v }
func boolp(v bool) *bool    { return &v }

func TestConfigMasksSecrets(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t)
	ctx := context.Background()

	cfg := store.LoadConfig(ctx)
	cfg.WebhookURL = "https://discord.com/api/webhooks/secret"
	if err := store.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	got := tr.Config(ctx)
	if got.APIKey != Masked || got.WebhookURL != Masked {
		t.Fatalf("secrets not masked: key=%q webhook=%q", got.APIKey, got.WebhookURL)
	}

	// The stored document keeps the real values.
	raw := store.LoadConfig(ctx)
	if raw.APIKey != "test-key" || raw.WebhookURL != "https://discord.com/api/webhooks/secret" {
		t.Fatalf("stored secrets clobbered: %+v", raw)
	}
}

func TestConfigUnsetSecretsStayEmpty(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t)
	ctx := context.Background()

	cfg := store.LoadConfig(ctx)
	cfg.APIKey = ""
	if err := store.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	if got := tr.Config(ctx); got.APIKey != "" {
		t.Fatalf("empty key should read empty, got %q", got.APIKey)
	}
}

func TestUpdateSettingsIgnoresMaskedValues(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t)
	ctx := context.Background()

	// Round-tripping a masked snapshot must not clobber the secret.
	if err := tr.UpdateSettings(ctx, Updates{APIKey: strp(Masked), PollInterval: intp(90)}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	cfg := store.LoadConfig(ctx)
	if cfg.APIKey != "test-key" {
		t.Fatalf("masked value clobbered the key: %q", cfg.APIKey)
	}
	if cfg.PollInterval != 90 {
		t.Fatalf("poll interval not applied: %d", cfg.PollInterval)
	}

	// A real value replaces the secret.
	if err := tr.UpdateSettings(ctx, Updates{APIKey: strp("new-key")}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got := store.LoadConfig(ctx).APIKey; got != "new-key" {
		t.Fatalf("key = %q, want new-key", got)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t)
	ctx := context.Background()

	if err := tr.UpdateSettings(ctx, Updates{PollInterval: intp(0)}); err == nil {
		t.Fatal("expected error for zero poll interval")
	}
	if err := tr.UpdateSettings(ctx, Updates{PollInterval: intp(-5)}); err == nil {
		t.Fatal("expected error for negative poll interval")
	}
	if err := tr.UpdateSettings(ctx, Updates{SummarySchedule: strp("not a cron spec")}); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if got := store.LoadConfig(ctx).PollInterval; got != 60 {
		t.Fatalf("rejected update must not persist, poll = %d", got)
	}

	if err := tr.UpdateSettings(ctx, Updates{SummarySchedule: strp("0 9 * * *")}); err != nil {
		t.Fatalf("valid cron spec rejected: %v", err)
	}
	if err := tr.UpdateSettings(ctx, Updates{SummarySchedule: strp("")}); err != nil {
		t.Fatalf("clearing the schedule should be allowed: %v", err)
	}
}

func TestUpdateSettingsNotifyFlags(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t)
	ctx := context.Background()

	if err := tr.UpdateSettings(ctx, Updates{
		NotifyOnAnyChange:     boolp(false),
		NotifyOnPriceDropOnly: boolp(true),
	}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	cfg := store.LoadConfig(ctx)
	if cfg.NotifyOnAnyChange || !cfg.NotifyOnPriceDropOnly {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestAddItemWithExplicitName(t *testing.T) {
	t.Parallel()
	tr, store, fetch, _ := newTestTracker(t)
	ctx := context.Background()

	item, err := tr.AddItem(ctx, "123", "My Item")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Name != "My Item" || !item.Enabled {
		t.Fatalf("unexpected item: %+v", item)
	}
	if fetch.callCount() != 0 {
		t.Fatal("explicit name must not trigger a catalog lookup")
	}
	if got := store.LoadConfig(ctx).SKUs["123"]; got != item {
		t.Fatalf("item not persisted: %+v", got)
	}
}

func TestAddItemResolvesName(t *testing.T) {
	t.Parallel()
	tr, store, fetch, _ := newTestTracker(t)
	ctx := context.Background()

	fetch.mu.Lock()
	fetch.products["555"] = product("555", "Resolved Name", 10)
	fetch.mu.Unlock()

	item, err := tr.AddItem(ctx, "555", "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Name != "Resolved Name" {
		t.Fatalf("name = %q", item.Name)
	}

	// Unknown SKU falls back to a placeholder instead of failing.
	item, err = tr.AddItem(ctx, "999", "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Name != "SKU 999" {
		t.Fatalf("fallback name = %q", item.Name)
	}
	if _, ok := store.LoadConfig(ctx).SKUs["999"]; !ok {
		t.Fatal("item not persisted")
	}
}

func TestAddItemRejectsEmptySKU(t *testing.T) {
	t.Parallel()
	tr, _, _, _ := newTestTracker(t)
	if _, err := tr.AddItem(context.Background(), "  ", "x"); err == nil {
		t.Fatal("expected error for empty sku")
	}
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t, product("100", "Widget", 50))
	ctx := context.Background()

	ok, err := tr.RemoveItem(ctx, "100")
	if err != nil || !ok {
		t.Fatalf("RemoveItem = %v, %v", ok, err)
	}
	if _, exists := store.LoadConfig(ctx).SKUs["100"]; exists {
		t.Fatal("item still in config")
	}

	ok, err = tr.RemoveItem(ctx, "100")
	if err != nil || ok {
		t.Fatalf("removing an unknown sku should report false, got %v, %v", ok, err)
	}
}

func TestSetItemEnabled(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t, product("100", "Widget", 50))
	ctx := context.Background()

	ok, err := tr.SetItemEnabled(ctx, "100", false)
	if err != nil || !ok {
		t.Fatalf("SetItemEnabled = %v, %v", ok, err)
	}
	if store.LoadConfig(ctx).SKUs["100"].Enabled {
		t.Fatal("item still enabled")
	}

	if ok, _ := tr.SetItemEnabled(ctx, "missing", true); ok {
		t.Fatal("unknown sku should report false")
	}
}

func TestRemoveItemKeepsState(t *testing.T) {
	t.Parallel()
	tr, store, _, _ := newTestTracker(t, product("100", "Widget", 50))
	ctx := context.Background()

	if err := tr.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if _, err := tr.RemoveItem(ctx, "100"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	// Stale state stays on disk; it just stops being refreshed.
	if _, ok := store.LoadState(ctx)["100"]; !ok {
		t.Fatal("state should be retained after removal")
	}

	if err := tr.RunPass(ctx); err != nil {
		t.Fatalf("pass after removal: %v", err)
	}
	if got := storageHistoryLen(t, store, "100"); got != 1 {
		t.Fatalf("history grew after removal: %d", got)
	}
}

func storageHistoryLen(t *testing.T, store storage.Store, sku string) int {
	t.Helper()
	return len(store.GetHistory(context.Background(), sku, 0))
}
