package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	logx "pricewatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqliteStore keeps config/state as JSON documents in a key-value table
// and history as rows, pruned to HistoryCap per SKU on every append.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(opts Options, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(opts.Dir, "pricewatch.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if opts.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) loadDoc(ctx context.Context, name string, v any) error {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return os.ErrNotExist
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

func (s *sqliteStore) saveDoc(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents(name, body, updated_at) VALUES(?,?,?)
		 ON CONFLICT(name) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		name, body, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) LoadConfig(ctx context.Context) *Config {
	cfg := newStoredConfig()
	err := s.loadDoc(ctx, "config", &cfg)
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

func (s *sqliteStore) SaveConfig(ctx context.Context, cfg *Config) error {
	return s.saveDoc(ctx, "config", cfg)
}

func (s *sqliteStore) LoadState(ctx context.Context) map[string]StateRecord {
	var state map[string]StateRecord
	err := s.loadDoc(ctx, "state", &state)
	switch {
	case err == nil && state != nil:
		return state
	case err != nil && !errors.Is(err, os.ErrNotExist):
		s.log.Error("state document unreadable; starting empty", logx.Err(err))
	}
	return map[string]StateRecord{}
}

func (s *sqliteStore) SaveState(ctx context.Context, state map[string]StateRecord) error {
	return s.saveDoc(ctx, "state", state)
}

func (s *sqliteStore) AppendHistory(ctx context.Context, sku string, e HistoryEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history(sku, at, price, available) VALUES(?,?,?,?)`,
		sku, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Price, boolInt(e.Available),
	); err != nil {
		return err
	}
	// Enforce the retention cap: drop oldest rows beyond it.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE sku = ? AND id NOT IN
		   (SELECT id FROM history WHERE sku = ? ORDER BY id DESC LIMIT ?)`,
		sku, sku, HistoryCap,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) GetHistory(ctx context.Context, sku string, limit int) []HistoryEntry {
	if limit <= 0 || limit > HistoryCap {
		limit = HistoryCap
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, price, available FROM history WHERE sku = ? ORDER BY id DESC LIMIT ?`,
		sku, limit,
	)
	if err != nil {
		s.log.Error("history query failed", logx.String("sku", sku), logx.Err(err))
		return nil
	}
	defer rows.Close()

	entries := scanHistory(rows, s.log)
	reverseHistory(entries) // newest-first from the query; callers want oldest-first
	return entries
}

func (s *sqliteStore) AllHistory(ctx context.Context, limit int) map[string][]HistoryEntry {
	out := map[string][]HistoryEntry{}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT sku FROM history`)
	if err != nil {
		s.log.Error("history sku scan failed", logx.Err(err))
		return out
	}
	skus := []string{}
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err == nil {
			skus = append(skus, sku)
		}
	}
	_ = rows.Close()

	for _, sku := range skus {
		out[sku] = s.GetHistory(ctx, sku, limit)
	}
	return out
}

func scanHistory(rows *sql.Rows, log logx.Logger) []HistoryEntry {
	var entries []HistoryEntry
	for rows.Next() {
		var (
			at        string
			price     float64
			available int
		)
		if err := rows.Scan(&at, &price, &available); err != nil {
			log.Error("history row scan failed", logx.Err(err))
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			continue
		}
		entries = append(entries, HistoryEntry{Timestamp: ts, Price: price, Available: available != 0})
	}
	return entries
}

func reverseHistory(entries []HistoryEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
