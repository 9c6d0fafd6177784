package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultTermContext is the context assigned to terms added without one
const DefaultTermContext = "General"

var (
	ErrTermExists   = errors.New("term already exists")
	ErrTermNotFound = errors.New("term not found")
	ErrInvalidTerm  = errors.New("term and definition are required")
)

// Term is a preferred rendering the engine should use
type Term struct {
	ID         int64  `json:"id"`
	Context    string `json:"context"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// AddTerm stores a glossary term. Terms are unique.
func (db *DB) AddTerm(ctx context.Context, term, definition, termContext string) (*Term, error) {
	term = strings.TrimSpace(term)
	definition = strings.TrimSpace(definition)
	if term == "" || definition == "" {
		return nil, ErrInvalidTerm
	}
	if termContext == "" {
		termContext = DefaultTermContext
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO glossary (context, term, definition) VALUES (?, ?, ?)`,
		termContext, term, definition,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: %s", ErrTermExists, term)
		}
		return nil, fmt.Errorf("failed to add term: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &Term{ID: id, Context: termContext, Term: term, Definition: definition}, nil
}

// ListTerms returns all glossary terms ordered by term
func (db *DB) ListTerms(ctx context.Context) ([]Term, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, context, term, definition FROM glossary ORDER BY term`)
	if err != nil {
		return nil, fmt.Errorf("failed to query glossary: %w", err)
	}
	defer rows.Close()

	terms := []Term{}
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Context, &t.Term, &t.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// DeleteTerm deletes a glossary term by ID
func (db *DB) DeleteTerm(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete term: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrTermNotFound, id)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
