package storage

import (
	"time"
)

// HistoryCap bounds the per-SKU history: oldest entries are dropped first.
const HistoryCap = 1000

// Config is the tracker configuration document. The SKU map is the
// authoritative set of tracked items; a SKU absent from it is not tracked.
type Config struct {
	APIKey                string                `json:"bestbuy_api_key"`
	WebhookURL            string                `json:"discord_webhook_url"`
	PollInterval          int                   `json:"poll_interval"` // seconds
	NotifyOnAnyChange     bool                  `json:"notify_on_any_change"`
	NotifyOnPriceDropOnly bool                  `json:"notify_on_price_drop_only"`
	SummarySchedule       string                `json:"summary_schedule,omitempty"` // cron spec, empty = off
	SKUs                  map[string]ItemConfig `json:"skus"`
}

type ItemConfig struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// StateRecord is the most recently observed snapshot for one SKU. It is
// replaced wholesale on every successful check; a failed check leaves it
// untouched.
type StateRecord struct {
	// Price is nil until the first successful check observed one.
	Price        *float64  `json:"price"`
	RegularPrice float64   `json:"regular_price"`
	Available    bool      `json:"available"`
	OnSale       bool      `json:"on_sale"`
	Name         string    `json:"name"`
	LastCheck    time.Time `json:"last_check"`
	URL          string    `json:"url"`
}

type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Available bool      `json:"available"`
}

// DefaultConfig returns the built-in configuration, including the one seed
// SKU the tracker ships with.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:          60,
		NotifyOnAnyChange:     true,
		NotifyOnPriceDropOnly: false,
		SKUs: map[string]ItemConfig{
			"6513602": {Name: "Epson LS800 Black", Enabled: true},
		},
	}
}

// newStoredConfig is the unmarshal target for a persisted document.
// NotifyOnAnyChange is pre-set so a document written before the flag
// existed keeps alerting on change; a decode into a zero struct would
// collapse "key absent" and "explicitly false" into silence. The SKU map
// stays nil here: seeding it would merge the default SKU into every
// loaded document.
func newStoredConfig() Config {
	return Config{NotifyOnAnyChange: true}
}

// Clone returns a deep copy, so callers can hand out config snapshots
// without exposing the stored map.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.SKUs = make(map[string]ItemConfig, len(c.SKUs))
	for k, v := range c.SKUs {
		cp.SKUs[k] = v
	}
	return &cp
}

// normalize fills in zero fields after a load, so partially written or
// older documents still behave.
func (c *Config) normalize() {
	if c.PollInterval <= 0 {
		c.PollInterval = 60
	}
	if c.SKUs == nil {
		c.SKUs = map[string]ItemConfig{}
	}
}
