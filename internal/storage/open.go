package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "pricewatch/pkg/logx"
)

// Store is the persistence contract for the tracker documents.
//
// Load operations fail soft: a missing or corrupt document is logged and
// falls back to defaults (config) or an empty collection (state/history).
// Save operations are atomic from the caller's point of view and fail
// loud: losing configuration or state is a correctness-affecting event.
type Store interface {
	LoadConfig(ctx context.Context) *Config
	SaveConfig(ctx context.Context, cfg *Config) error

	LoadState(ctx context.Context) map[string]StateRecord
	SaveState(ctx context.Context, state map[string]StateRecord) error

	AppendHistory(ctx context.Context, sku string, e HistoryEntry) error
	// GetHistory returns up to limit most recent entries, oldest first.
	// limit <= 0 means all retained entries.
	GetHistory(ctx context.Context, sku string, limit int) []HistoryEntry
	AllHistory(ctx context.Context, limit int) map[string][]HistoryEntry

	Close() error
}

// Options configures storage.
type Options struct {
	Driver      string
	Dir         string        // data directory
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(opts Options, log logx.Logger) (Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "", "file":
		return openFile(opts, log)
	case "sqlite", "sqlite3":
		return openSQLite(opts, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
