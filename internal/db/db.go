package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/spans/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "spans.db"

// Init initializes the SQLite database at baseDir/spans.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.spans.
func Init(baseDir string) (*sql.DB, error) {
	// Base directory holds the database and exports; owner-only
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// MkdirAll leaves an existing directory's mode alone (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Default target for CSV export and source for import
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the DSN apply to every pooled connection, not just the first
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the CLI read while the MCP server holds a write
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates spans.db on first use)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init when the CLI and server contend for the same file.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema. intervals_json is the canonical
	// series; the count, coverage and extent columns are derived from it
	// on write so list can skip decoding.
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS series (
		  id              TEXT PRIMARY KEY,
		  workspace_raw   TEXT NOT NULL,
		  workspace_norm  TEXT NOT NULL,
		  name_raw        TEXT NOT NULL,
		  name_norm       TEXT NOT NULL,
		  title           TEXT,
		  intervals_json  TEXT NOT NULL,
		  interval_count  INTEGER NOT NULL,
		  covered_ticks   INTEGER NOT NULL,
		  extent_start    INTEGER,
		  extent_end      INTEGER,
		  created_at      INTEGER NOT NULL,
		  updated_at      INTEGER NOT NULL
		);

		-- list: newest first within a workspace
		CREATE INDEX IF NOT EXISTS idx_series_workspace_updated
		ON series(workspace_norm, updated_at DESC);

		-- names are unique per workspace after normalization
		CREATE UNIQUE INDEX IF NOT EXISTS idx_series_workspace_name_norm
		ON series(workspace_norm, name_norm);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
