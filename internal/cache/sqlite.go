// Package cache persists data that is expensive to recompute between builds:
// git histories, rendered page bodies and a log of finished builds.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inful/mdfp"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docsite/internal/gitmeta"
)

// Store is a SQLite-backed build cache.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the cache database. Use ":memory:" for a throwaway
// cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS git_history (
		head TEXT NOT NULL,
		path TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (head, path)
	);
	CREATE TABLE IF NOT EXISTS rendered_pages (
		fingerprint TEXT PRIMARY KEY,
		html TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		finished_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_finished ON builds(finished_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetHistory implements gitmeta.Store. A cached nil history is reported as
// found.
func (s *Store) GetHistory(ctx context.Context, head, path string) (*gitmeta.History, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM git_history WHERE head = ? AND path = ?", head, path,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query git history: %w", err)
	}

	var h *gitmeta.History
	if err := json.Unmarshal([]byte(payload), &h); err != nil {
		return nil, false, fmt.Errorf("decode git history: %w", err)
	}
	return h, true, nil
}

// PutHistory implements gitmeta.Store.
func (s *Store) PutHistory(ctx context.Context, head, path string, h *gitmeta.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode git history: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO git_history (head, path, payload) VALUES (?, ?, ?)",
		head, path, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert git history: %w", err)
	}
	return nil
}

// PageKey fingerprints a page source for the render cache. salt must change
// whenever the renderer output changes for identical input.
func PageKey(frontMatter, body []byte, salt string) string {
	return salt + ":" + mdfp.CalculateFingerprintFromParts(string(frontMatter), string(body))
}

// GetPage returns cached HTML for key.
func (s *Store) GetPage(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var html string
	err := s.db.QueryRowContext(ctx, "SELECT html FROM rendered_pages WHERE fingerprint = ?", key).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query rendered page: %w", err)
	}
	return html, true, nil
}

// PutPage stores rendered HTML under key.
func (s *Store) PutPage(ctx context.Context, key, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO rendered_pages (fingerprint, html, updated_at) VALUES (?, ?, ?)",
		key, html, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert rendered page: %w", err)
	}
	return nil
}

// BuildRecord is one entry of the build log.
type BuildRecord struct {
	ID         int64
	FinishedAt time.Time
	Payload    []byte
}

// RecordBuild appends a finished build's JSON summary to the build log.
func (s *Store) RecordBuild(ctx context.Context, finishedAt time.Time, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (finished_at, payload) VALUES (?, ?)",
		finishedAt.Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// RecentBuilds returns up to limit build records, newest first.
func (s *Store) RecentBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, finished_at, payload FROM builds ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []BuildRecord
	for rows.Next() {
		var r BuildRecord
		var ts int64
		if err := rows.Scan(&r.ID, &ts, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		r.FinishedAt = time.Unix(ts, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
