// Package sqlite persists stored results to a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pathwaycore/internal/result"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ result.Repository = (*Store)(nil)

// Store keeps one row per token.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (creating when needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "pathwaycore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS results (
		token TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Save upserts payload under token.
func (s *Store) Save(ctx context.Context, token string, payload []byte) error {
	if token == "" {
		return errors.New("sqlite store: token required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results(token,payload,created_at) VALUES(?,?,?) ON CONFLICT(token) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at`,
		token, payload, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert result %s: %w", token, err)
	}
	return nil
}

// Load returns the payload stored under token.
func (s *Store) Load(ctx context.Context, token string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM results WHERE token = ?`, token).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, result.NotFoundError{Kind: "token", ID: token}
	}
	if err != nil {
		return nil, fmt.Errorf("select result %s: %w", token, err)
	}
	return payload, nil
}

// Delete removes token and reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("delete result %s: %w", token, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Tokens lists stored tokens in ascending order.
func (s *Store) Tokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM results ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("select tokens: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []string{}
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, tok)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
