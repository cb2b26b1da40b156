// Package sqlite is the SQLite-backed implementation of every
// domain.*Store port, adapted from the teacher's internal/store package:
// one *sql.DB, single-writer connection pool, WAL journal, busy timeout.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the concrete SQLite-backed implementation shared by every
// domain.*Store port in this package (one db handle, one set of tables).
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates (or reopens) the SQLite database at dbPath and ensures every
// table this runtime needs exists.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limit the pool to a
	// single connection so all access is serialized at the Go level,
	// preventing SQLITE_BUSY errors from concurrent HTTP handlers and
	// the dispatch loop racing each other.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping backs the "action:health_check" actionRef (spec.md §4.4): a trivial
// round-trip query confirming the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	inits := []func() error{
		s.initAgentSchema,
		s.initSessionSchema,
		s.initTurnSchema,
		s.initChannelSchema,
		s.initScheduleSchema,
		s.initExecutionSchema,
		s.initAuditSchema,
		s.initMemorySchema,
		s.initGuardrailSchema,
	}
	for _, init := range inits {
		if err := init(); err != nil {
			return err
		}
	}
	return nil
}
