package tracker

import (
	"context"
	"errors"
	"time"

	logx "pricewatch/pkg/logx"
)

// stopJoinTimeout bounds how long Stop waits for the loop to exit.
const stopJoinTimeout = 5 * time.Second

// Start launches the background polling loop. It is a no-op when already
// running and refuses (logged, still stopped) when no API key is
// configured.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopCh != nil {
		t.log.Warn("tracker already running")
		return
	}

	cfg := t.store.LoadConfig(ctx)
	if cfg.APIKey == "" {
		t.log.Error("cannot start: catalog API key not configured")
		return
	}

	t.stopCh = make(chan struct{})
	t.stopDone = make(chan struct{})
	t.running.Store(true)

	go t.loop(t.stopCh, t.stopDone)
	go t.summaryLoop(t.stopCh)
}

// Stop signals the loop and waits (bounded) until it has observably
// exited. A pass already in flight runs to completion; no new pass starts
// after the signal is observed.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stopCh, done := t.stopCh, t.stopDone
	t.stopCh, t.stopDone = nil, nil
	t.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)

	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		t.log.Warn("timed out waiting for polling loop to exit")
	}
	t.running.Store(false)
}

func (t *Tracker) loop(stop, done chan struct{}) {
	defer close(done)

	t.log.Info("price tracker started")
	defer t.log.Info("price tracker stopped")

	for {
		// The loop keeps its own lifetime; stopping must not cancel a
		// pass that is already in flight.
		if err := t.RunPass(context.Background()); err != nil && !errors.Is(err, ErrPassRunning) {
			t.log.Error("pass failed", logx.Err(err))
		}

		interval := t.pollInterval()
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}
	}
}

// pollInterval re-reads the configured interval so updates apply at the
// next wait without a restart.
func (t *Tracker) pollInterval() time.Duration {
	cfg := t.store.LoadConfig(context.Background())
	secs := cfg.PollInterval
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}
