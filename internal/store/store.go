// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps a SQLite history of executed searches and the
// entries they retrieved, so results can be listed and re-exported
// without querying the API again.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/els-search/pkg/types"
)

// timeLayout is fixed-width so executed_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound reports an unknown search ID.
var ErrNotFound = errors.New("search not found")

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at cfg.Path and creates the
// schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			idx TEXT NOT NULL,
			uri TEXT NOT NULL,
			total_results INTEGER NOT NULL,
			retrieved INTEGER NOT NULL,
			complete INTEGER NOT NULL,
			executed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			identifier TEXT,
			title TEXT,
			data TEXT NOT NULL,
			PRIMARY KEY (search_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_identifier ON entries(identifier)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_executed_at ON searches(executed_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save records a search and its entries in one transaction. An empty
// rec.ID is filled with a new UUID; a zero ExecutedAt with the current
// time. The stored record is returned.
func (s *Store) Save(ctx context.Context, rec types.SearchRecord, entries []types.Entry) (types.SearchRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ExecutedAt.IsZero() {
		rec.ExecutedAt = time.Now().UTC()
	}
	rec.Retrieved = len(entries)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rec, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO searches (id, query, idx, uri, total_results, retrieved, complete, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Index, rec.URI, rec.TotalResults, rec.Retrieved,
		rec.Complete, rec.ExecutedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return rec, fmt.Errorf("inserting search: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (search_id, position, identifier, title, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return rec, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return rec, fmt.Errorf("encoding entry %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, i, identifier(e), e.String("dc:title"), string(data)); err != nil {
			return rec, fmt.Errorf("inserting entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return rec, fmt.Errorf("committing search: %w", err)
	}
	return rec, nil
}

// List returns saved searches, newest first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]types.SearchRecord, error) {
	q := `SELECT id, query, idx, uri, total_results, retrieved, complete, executed_at
	      FROM searches ORDER BY executed_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer rows.Close()

	var out []types.SearchRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Load returns a saved search and its entries in retrieval order.
func (s *Store) Load(ctx context.Context, id string) (types.SearchRecord, []types.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, idx, uri, total_results, retrieved, complete, executed_at
		 FROM searches WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return rec, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM entries WHERE search_id = ? ORDER BY position`, id)
	if err != nil {
		return rec, nil, fmt.Errorf("loading entries: %w", err)
	}
	defer rows.Close()

	entries := make([]types.Entry, 0, rec.Retrieved)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return rec, nil, fmt.Errorf("scanning entry: %w", err)
		}
		var e types.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return rec, nil, fmt.Errorf("decoding entry: %w", err)
		}
		entries = append(entries, e)
	}
	return rec, entries, rows.Err()
}

// Delete removes a saved search and its entries.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (types.SearchRecord, error) {
	var rec types.SearchRecord
	var executedAt string
	err := sc.Scan(&rec.ID, &rec.Query, &rec.Index, &rec.URI,
		&rec.TotalResults, &rec.Retrieved, &rec.Complete, &executedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning search: %w", err)
	}
	if rec.ExecutedAt, err = time.Parse(timeLayout, executedAt); err != nil {
		return rec, fmt.Errorf("parsing executed_at %q: %w", executedAt, err)
	}
	return rec, nil
}

// identifier picks the most specific ID an entry carries.
func identifier(e types.Entry) string {
	for _, k := range []string{"eid", "dc:identifier", "prism:doi", "pii"} {
		if v := e.String(k); v != "" {
			return v
		}
	}
	return ""
}
