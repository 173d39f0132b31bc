package pending

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultQuota is the default serialized-size bound of the store,
// chosen to stay conservatively inside common client storage quotas.
const DefaultQuota = 4 << 20 // 4 MiB

// Store is the SQLite-backed pending transaction store.
//
// All operations are synchronous and touch only the local database,
// never the network.
type Store struct {
	db    *sql.DB
	quota int64
}

// Option configures a Store at open time.
type Option func(*Store)

// WithQuota overrides the serialized-size bound.
func WithQuota(bytes int64) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// Open creates or opens the store database at path. Idempotent: safe to
// call repeatedly against the same file.
//
// The database is configured with WAL mode, NORMAL synchronous, a
// 5-second busy timeout, and a single connection (SQLite allows one
// writer; a single connection avoids SQLITE_BUSY churn).
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect pending store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pending store schema: %w", err)
	}

	s := &Store{db: db, quota: DefaultQuota}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}
