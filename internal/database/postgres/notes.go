package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facebot/internal/database"
)

// UpsertNote inserts or replaces the note for a label.
func (s *Store) UpsertNote(ctx context.Context, label, note string) error {
	query := `
		INSERT INTO notes (label, note)
		VALUES ($1, $2)
		ON CONFLICT (label) DO UPDATE SET note = EXCLUDED.note
	`

	if _, err := s.pool.Exec(ctx, query, label, note); err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

// GetNote returns the note for a label, or nil when absent.
func (s *Store) GetNote(ctx context.Context, label string) (*database.Note, error) {
	var n database.Note
	err := s.pool.QueryRow(ctx, "SELECT label, note FROM notes WHERE label = $1", label).Scan(&n.Label, &n.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query note: %w", err)
	}
	return &n, nil
}
