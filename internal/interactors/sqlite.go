package interactors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"pathwaycore/pkg/domain"
)

// SQLiteSource reads interactions from a SQLite database with one row per
// (target, interactor) pair.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// OpenSQLiteSource opens or creates the interactions database at path.
func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	if path == "" {
		return nil, fmt.Errorf("interactors: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS interactions (
		target TEXT NOT NULL,
		accession TEXT NOT NULL,
		alias TEXT NOT NULL DEFAULT '',
		alias_without_species TEXT NOT NULL DEFAULT '',
		resource TEXT NOT NULL,
		PRIMARY KEY (target, resource, accession)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create interactions table: %w", err)
	}
	return &SQLiteSource{db: db, path: path}, nil
}

// Add stores an interaction partner of target, replacing an existing row.
func (s *SQLiteSource) Add(ctx context.Context, target string, in Interactor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions(target, accession, alias, alias_without_species, resource) VALUES(?,?,?,?,?)
		 ON CONFLICT(target, resource, accession) DO UPDATE SET alias=excluded.alias, alias_without_species=excluded.alias_without_species`,
		domain.NormalizeIdentifier(target), in.Accession, in.Alias, in.AliasWithoutSpecies, in.Resource)
	if err != nil {
		return fmt.Errorf("insert interaction %s/%s: %w", target, in.Accession, err)
	}
	return nil
}

// Interactors implements Source.
func (s *SQLiteSource) Interactors(ctx context.Context, target string) ([]Interactor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT accession, alias, alias_without_species, resource FROM interactions WHERE target = ? ORDER BY resource, accession`,
		domain.NormalizeIdentifier(target))
	if err != nil {
		return nil, fmt.Errorf("select interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Interactor
	for rows.Next() {
		var in Interactor
		if err := rows.Scan(&in.Accession, &in.Alias, &in.AliasWithoutSpecies, &in.Resource); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *SQLiteSource) Path() string { return s.path }
