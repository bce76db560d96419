// Package postgres persists stored results to a Postgres table through the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pathwaycore/internal/result"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ result.Repository = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/pathwaycore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps one JSONB row per token.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore connects using dsn (falls back to defaultDSN) and ensures the
// results table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureResultsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func ensureResultsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS results (
		token TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure results table: %w", err)
	}
	return nil
}

// Save upserts payload under token.
func (s *Store) Save(ctx context.Context, token string, payload []byte) error {
	if token == "" {
		return errors.New("postgres store: token required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (token, payload, created_at) VALUES ($1, $2, $3) ON CONFLICT (token) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`,
		token, payload, s.now().UTC())
	if err != nil {
		return fmt.Errorf("upsert result %s: %w", token, err)
	}
	return nil
}

// Load returns the payload stored under token.
func (s *Store) Load(ctx context.Context, token string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM results WHERE token = $1`, token).Scan(&payload)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE token = $1`, token)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sql.Open hook for tests and returns a restore func.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
