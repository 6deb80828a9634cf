package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logx "pricewatch/pkg/logx"
)

// fileStore is the dependency-free backend: three JSON documents under the
// data dir. Every save writes a temp file and renames it over the old
// document, so a load after a crash sees either the old or the new
// content, never a torn write.
type fileStore struct {
	log logx.Logger
	dir string

	// One writer at a time per store; document saves must not interleave.
	mu sync.Mutex
}

const (
	configDoc  = "config.json"
	stateDoc   = "state.json"
	historyDoc = "history.json"
)

func openFile(opts Options, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &fileStore{log: log, dir: opts.Dir}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) path(doc string) string { return filepath.Join(s.dir, doc) }

// readDoc decodes one document. Returns os.ErrNotExist untouched so
// callers can distinguish "first run" from corruption.
func (s *fileStore) readDoc(doc string, v any) error {
	b, err := os.ReadFile(s.path(doc))
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return os.ErrNotExist
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", doc, err)
	}
	return nil
}

func (s *fileStore) writeDoc(doc string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", doc, err)
	}
	path := s.path(doc)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", doc, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s: %w", doc, err)
	}
	return nil
}

func (s *fileStore) LoadConfig(ctx context.Context) *Config {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := newStoredConfig()
	err := s.readDoc(configDoc, &cfg)
	switch {
	case err == nil:
		cfg.normalize()
		return &cfg
	case errors.Is(err, os.ErrNotExist):
		s.log.Debug("no config document; using defaults")
	default:
		s.log.Error("config document unreadable; using defaults", logx.Err(err))
	}
	return DefaultConfig()
}

func (s *fileStore) SaveConfig(ctx context.Context, cfg *Config) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDoc(configDoc, cfg)
}

func (s *fileStore) LoadState(ctx context.Context) map[string]StateRecord {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var state map[string]StateRecord
	err := s.readDoc(stateDoc, &state)
	switch {
	case err == nil && state != nil:
		return state
	case err != nil && !errors.Is(err, os.ErrNotExist):
		s.log.Error("state document unreadable; starting empty", logx.Err(err))
	}
	return map[string]StateRecord{}
}

func (s *fileStore) SaveState(ctx context.Context, state map[string]StateRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDoc(stateDoc, state)
}

func (s *fileStore) loadHistoryLocked() map[string][]HistoryEntry {
	var hist map[string][]HistoryEntry
	err := s.readDoc(historyDoc, &hist)
	switch {
	case err == nil && hist != nil:
		return hist
	case err != nil && !errors.Is(err, os.ErrNotExist):
		s.log.Error("history document unreadable; starting empty", logx.Err(err))
	}
	return map[string][]HistoryEntry{}
}

func (s *fileStore) AppendHistory(ctx context.Context, sku string, e HistoryEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.loadHistoryLocked()
	entries := append(hist[sku], e)
	if len(entries) > HistoryCap {
		entries = entries[len(entries)-HistoryCap:]
	}
	hist[sku] = entries
	return s.writeDoc(historyDoc, hist)
}

func (s *fileStore) GetHistory(ctx context.Context, sku string, limit int) []HistoryEntry {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.loadHistoryLocked()[sku]
	return tailHistory(entries, limit)
}

func (s *fileStore) AllHistory(ctx context.Context, limit int) map[string][]HistoryEntry {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.loadHistoryLocked()
	out := make(map[string][]HistoryEntry, len(hist))
	for sku, entries := range hist {
		out[sku] = tailHistory(entries, limit)
	}
	return out
}

// tailHistory copies the newest limit entries, preserving ascending order.
func tailHistory(entries []HistoryEntry, limit int) []HistoryEntry {
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out
}
