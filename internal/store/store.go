// Package store owns every persisted entity: the per-family primary tables,
// their synchronized FTS5 search indexes, and the crawl ledger. Upsert is the
// only write path and always refreshes primary row and index row in one
// transaction, so readers never observe one without the other.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups when no row matches. Callers treat it
// as a defined result, not a failure.
var ErrNotFound = errors.New("not found")

// Store is an explicitly constructed, explicitly closed handle over the
// single store file shared by the ingestion and query phases.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open opens (creating if necessary) the store file read-write and ensures
// the schema exists. The writer connection is kept single to honor the
// single-writer discipline during ingestion.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing store file for the query phase. Writes are
// rejected by the engine, not just by convention.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", url.PathEscape(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s read-only: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store %s read-only: %w", path, err)
	}
	return &Store{db: db, path: path, readOnly: true}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// checksumMatches reports whether the row selected by query already carries
// the given content digest. A missing row is simply "no match".
func (s *Store) checksumMatches(ctx context.Context, query, sum string, args ...any) (bool, error) {
	var existing string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read checksum: %w", err)
	}
	return existing == sum, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
