package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is one cached translation
type Record struct {
	ID           int64     `json:"id"`
	OriginalText string    `json:"original_text"`
	Translation  string    `json:"translation"`
	Style        string    `json:"style"`
	CreatedAt    time.Time `json:"created_at"`
}

const recordColumns = `id, original_text, translation, style, created_at`

// UpsertTranslation stores translation for (original, style). An existing
// row for the pair gets the new translation and timestamp.
func (db *DB) UpsertTranslation(ctx context.Context, original, translation, style string) error {
	if style == "" {
		style = DefaultStyle
	}

	query := `
		INSERT INTO history (original_text, translation, style, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(original_text, style) DO UPDATE SET
			translation = excluded.translation,
			created_at = excluded.created_at
	`

	_, err := db.conn.ExecContext(ctx, query, original, translation, style, db.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save translation: %w", err)
	}
	return nil
}

// FindTranslation returns the newest record for (original, style), or
// nil when there is none
func (db *DB) FindTranslation(ctx context.Context, original, style string) (*Record, error) {
	if style == "" {
		style = DefaultStyle
	}

	query := `
		SELECT ` + recordColumns + `
		FROM history
		WHERE original_text = ? AND style = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	r, err := scanRecord(db.conn.QueryRowContext(ctx, query, original, style))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query translation: %w", err)
	}
	return r, nil
}

// TranslationsByStyle returns every record stored for style
func (db *DB) TranslationsByStyle(ctx context.Context, style string) ([]Record, error) {
	if style == "" {
		style = DefaultStyle
	}

	query := `SELECT ` + recordColumns + ` FROM history WHERE style = ?`

	rows, err := db.conn.QueryContext(ctx, query, style)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations: %w", err)
	}
	return scanRecords(rows)
}

// RecentHistory returns up to limit records, newest first
func (db *DB) RecentHistory(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}

	query := `
		SELECT ` + recordColumns + `
		FROM history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return scanRecords(rows)
}

// HistoryCount returns the number of stored records
func (db *DB) HistoryCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// ClearHistory deletes every record and returns how many were removed
func (db *DB) ClearHistory(ctx context.Context) (int64, error) {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var createdAt int64
	if err := row.Scan(&r.ID, &r.OriginalText, &r.Translation, &r.Style, &createdAt); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, createdAt)
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}
