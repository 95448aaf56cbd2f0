// Package db opens report databases and manages their schema.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotReport is returned by OpenReport for a database that has never been
// migrated to the report schema.
var ErrNotReport = errors.New("not a report database")

// A report is handed around as a single file, so the rollback journal is used
// rather than WAL and its -wal/-shm companions.
var pragmas = []string{
	"PRAGMA journal_mode = DELETE",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
}

// Open opens (or creates) the SQLite database at path with a single
// connection.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return db, nil
}

// OpenReport opens an existing report. Unlike Open it never creates the
// file, and it fails with ErrNotReport when the schema is missing.
func OpenReport(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	v, err := Version(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if v < 1 {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotReport, path)
	}
	return db, nil
}

func setupGoose() error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	return nil
}

// RunMigrations applies all pending goose migrations from the embedded FS.
func RunMigrations(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Version returns the current schema version, 0 for an unmigrated database.
func Version(db *sql.DB) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}
