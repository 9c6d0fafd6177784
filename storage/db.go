package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
const CurrentSchemaVersion = 2

// DefaultStyle is the style recorded when none is given.
const DefaultStyle = "Academic"

type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens the database at path and initializes the schema
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// SetClock replaces the time source used for record timestamps
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// SchemaVersion returns the user_version pragma
func (db *DB) SchemaVersion() (int, error) {
	var version int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func (db *DB) setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// migrate applies schema migrations based on user_version
func (db *DB) migrate() error {
	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	// 0 -> 1: history and glossary tables
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			original_text TEXT NOT NULL,
			translation TEXT NOT NULL,
			style TEXT NOT NULL DEFAULT 'Academic',
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_original_text ON history(original_text);
		CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);

		CREATE TABLE IF NOT EXISTS glossary (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			context TEXT NOT NULL DEFAULT 'General',
			term TEXT NOT NULL UNIQUE,
			definition TEXT NOT NULL
		);
		`
		if err := db.applyMigration(1, schema); err != nil {
			return err
		}
	}

	// 1 -> 2: one canonical row per (original_text, style). Older rows
	// written before the constraint existed are collapsed to the newest.
	if version < 2 {
		schema := `
		DELETE FROM history
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY original_text, style
					ORDER BY created_at DESC, id DESC
				) AS rn
				FROM history
			) WHERE rn = 1
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_history_original_style
		ON history(original_text, style);

		CREATE INDEX IF NOT EXISTS idx_history_style ON history(style);
		`
		if err := db.applyMigration(2, schema); err != nil {
			return err
		}
	}

	return nil
}

func (db *DB) applyMigration(version int, schema string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("migration %d failed: %w", version, err)
	}
	if err := db.setSchemaVersion(tx, version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}
	return nil
}
