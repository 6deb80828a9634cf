// Package tracker is the polling engine: it drives periodic catalog
// checks over the tracked SKUs, diffs against last-known state, decides
// whether a change warrants an alert, and owns the scheduler lifecycle.
package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"pricewatch/internal/catalog"
	"pricewatch/internal/notifier"
	"pricewatch/internal/storage"
	logx "pricewatch/pkg/logx"
)

// ErrPassRunning is returned when RunPass is invoked while another pass is
// in flight. At most one pass executes at a time system-wide; concurrent
// callers are refused, not queued.
var ErrPassRunning = errors.New("a pass is already running")

// Fetcher is the catalog lookup the engine needs.
type Fetcher interface {
	Fetch(ctx context.Context, apiKey, sku string) (*catalog.Product, error)
}

// Alerter delivers notifications. Implementations must treat a missing
// webhook as a no-op for Notify/Summary.
type Alerter interface {
	Notify(ctx context.Context, p *catalog.Product, prev *float64, sku string) error
	Summary(ctx context.Context, items []notifier.SummaryItem) error
	Test(ctx context.Context) error
}

// Tracker is the explicit service object replacing any notion of a global
// tracker: constructed once at process start, started and stopped by its
// owner.
type Tracker struct {
	store storage.Store
	fetch Fetcher
	alert Alerter
	log   logx.Logger

	// cfgMu serializes read-modify-write cycles on the config document.
	cfgMu sync.Mutex

	// runGate holds one token; whoever takes it runs the pass.
	runGate chan struct{}

	running atomic.Bool

	// loop lifecycle, guarded by mu.
	mu       sync.Mutex
	stopCh   chan struct{}
	stopDone chan struct{}
}

func New(store storage.Store, fetch Fetcher, alert Alerter, log logx.Logger) *Tracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	t := &Tracker{
		store:   store,
		fetch:   fetch,
		alert:   alert,
		log:     log,
		runGate: make(chan struct{}, 1),
	}
	t.runGate <- struct{}{}
	return t
}

// IsRunning reports whether the polling loop is active.
func (t *Tracker) IsRunning() bool { return t.running.Load() }
