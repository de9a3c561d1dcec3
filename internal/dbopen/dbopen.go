// Package dbopen opens the linkharvest SQLite database with the pragmas a
// long-running scrape needs: WAL so exports can read while a batch writes,
// a generous busy timeout, and foreign keys on.
//
// The driver is registered by the caller:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("data/linkharvest.db", dbopen.WithSchema(store.Schema))
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type settings struct {
	driver   string
	busyMS   int
	mkdirAll bool
	schemas  []string
}

// Option customises Open.
type Option func(*settings)

// WithDriver overrides the database/sql driver name. Default: "sqlite".
func WithDriver(name string) Option { return func(s *settings) { s.driver = name } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(s *settings) { s.busyMS = ms } }

// WithMkdirAll creates the database path's parent directories before opening.
func WithMkdirAll() Option { return func(s *settings) { s.mkdirAll = true } }

// WithSchema queues DDL to execute once the pragmas are in place.
func WithSchema(ddl string) Option { return func(s *settings) { s.schemas = append(s.schemas, ddl) } }

// Open opens path, applies pragmas and queued schemas, and pings.
func Open(path string, opts ...Option) (*sql.DB, error) {
	s := settings{driver: "sqlite", busyMS: 10_000}
	for _, o := range opts {
		o(&s)
	}

	if s.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir for %s: %w", path, err)
		}
	}

	db, err := sql.Open(s.driver, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open %s: %w", path, err)
	}

	fail := func(err error) (*sql.DB, error) {
		db.Close()
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyMS),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fail(fmt.Errorf("dbopen: %s: %w", p, err))
		}
	}

	for _, ddl := range s.schemas {
		if _, err := db.Exec(ddl); err != nil {
			return fail(fmt.Errorf("dbopen: apply schema: %w", err))
		}
	}

	if err := db.Ping(); err != nil {
		return fail(fmt.Errorf("dbopen: ping %s: %w", path, err))
	}
	return db, nil
}

// OpenMemory opens an in-memory database for tests. Connections are capped
// at one because every new connection to ":memory:" is a fresh database.
// Closed via t.Cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen: open memory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
