package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facebot/internal/database"
)

// AddModel stores a new model version.
func (s *Store) AddModel(ctx context.Context, model database.StoredModel) error {
	query := `
		INSERT INTO models (id, blob, face_count)
		VALUES ($1, $2, $3)
	`

	if _, err := s.pool.Exec(ctx, query, model.ID, model.Blob, model.FaceCount); err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

// GetLatestModel returns the newest model version, or nil when none exists.
func (s *Store) GetLatestModel(ctx context.Context) (*database.StoredModel, error) {
	query := `
		SELECT id, blob, face_count, created_at
		FROM models
		ORDER BY created_at DESC
		LIMIT 1
	`

	var m database.StoredModel
	err := s.pool.QueryRow(ctx, query).Scan(&m.ID, &m.Blob, &m.FaceCount, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest model: %w", err)
	}
	return &m, nil
}

// DeleteOutdatedModels removes every model version except the newest.
func (s *Store) DeleteOutdatedModels(ctx context.Context) error {
	query := `
		DELETE FROM models
		WHERE id <> (SELECT id FROM models ORDER BY created_at DESC LIMIT 1)
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("delete outdated models: %w", err)
	}
	return nil
}
