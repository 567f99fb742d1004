// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package sqlite implements the auth repositories on a single SQLite file
// via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/fittrack/accounts/internal/auth"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of *sql.DB the repositories use.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the SQLite handle shared by the account and session repositories.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oops.Code("SQLITE_PATH_REQUIRED").Errorf("sqlite path is required")
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("path", path).Wrap(err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("SQLITE_OPEN_FAILED").With("path", path).Wrap(err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close() //nolint:errcheck // schema error takes precedence
		return nil, oops.Code("SQLITE_SCHEMA_FAILED").With("path", path).Wrap(err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return oops.Code("SQLITE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return oops.Code("SQLITE_PING_FAILED").Wrap(err)
	}
	return nil
}

// Accounts returns an account repository backed by this store.
func (s *Store) Accounts() *AccountRepository {
	return NewAccountRepository(s.db)
}

// Sessions returns a session repository backed by this store.
func (s *Store) Sessions() *SessionRepository {
	return NewSessionRepository(s.db)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Column and index names that identify each unique account field in
// SQLite constraint messages.
var uniqueMarkers = []struct {
	marker string
	field  string
}{
	{"accounts.username", auth.ConflictUsername},
	{"uq_accounts_username", auth.ConflictUsername},
	{"accounts.email", auth.ConflictEmail},
	{"uq_accounts_email", auth.ConflictEmail},
	{"accounts.phone_number", auth.ConflictPhone},
	{"uq_accounts_phone_number", auth.ConflictPhone},
}

// classifyUniqueViolation returns a *auth.ConflictError when err is a
// unique constraint failure, and nil otherwise.
func classifyUniqueViolation(err error) error {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
	default:
		return nil
	}

	message := err.Error()
	for _, m := range uniqueMarkers {
		if strings.Contains(message, m.marker) {
			return &auth.ConflictError{Field: m.field}
		}
	}
	return &auth.ConflictError{}
}
