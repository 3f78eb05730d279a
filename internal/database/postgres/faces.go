package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facebot/internal/database"
	"github.com/pgvector/pgvector-go"
)

// AddFace stores a new face row and returns its ID.
func (s *Store) AddFace(ctx context.Context, face database.StoredFace) (int64, error) {
	query := `
		INSERT INTO faces (label, embedding, image)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	vec := pgvector.NewVector(face.Embedding)
	if err := s.pool.QueryRow(ctx, query, face.Label, vec, face.Image).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert face: %w", err)
	}
	return id, nil
}

// GetFaces returns all faces ordered by ID.
func (s *Store) GetFaces(ctx context.Context) ([]database.StoredFace, error) {
	query := `
		SELECT id, label, embedding, image, created_at
		FROM faces
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// GetFacesByLabel returns all faces trained under label.
func (s *Store) GetFacesByLabel(ctx context.Context, label string) ([]database.StoredFace, error) {
	query := `
		SELECT id, label, embedding, image, created_at
		FROM faces
		WHERE label = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, label)
	if err != nil {
		return nil, fmt.Errorf("query faces by label: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// GetReferenceFace returns the oldest face for a label, or nil.
func (s *Store) GetReferenceFace(ctx context.Context, label string) (*database.StoredFace, error) {
	query := `
		SELECT id, label, embedding, image, created_at
		FROM faces
		WHERE label = $1
		ORDER BY id
		LIMIT 1
	`

	var face database.StoredFace
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, query, label).Scan(
		&face.ID, &face.Label, &vec, &face.Image, &face.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reference face: %w", err)
	}
	face.Embedding = vec.Slice()
	return &face, nil
}

// UpdateFaceEmbedding replaces the embedding of an existing face row.
func (s *Store) UpdateFaceEmbedding(ctx context.Context, id int64, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	if _, err := s.pool.Exec(ctx, "UPDATE faces SET embedding = $1 WHERE id = $2", vec, id); err != nil {
		return fmt.Errorf("update face embedding: %w", err)
	}
	return nil
}

// FindLabel reports whether any face is trained under label.
func (s *Store) FindLabel(ctx context.Context, label string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM faces WHERE label = $1)", label).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check label exists: %w", err)
	}
	return exists, nil
}

// ListLabels returns the distinct trained labels.
func (s *Store) ListLabels(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT label FROM faces ORDER BY label")
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return labels, nil
}

// CountFaces returns the number of stored faces.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// scanFaces reads face rows into a slice.
func scanFaces(rows *sql.Rows) ([]database.StoredFace, error) {
	var faces []database.StoredFace
	for rows.Next() {
		var face database.StoredFace
		var vec pgvector.Vector
		if err := rows.Scan(&face.ID, &face.Label, &vec, &face.Image, &face.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		face.Embedding = vec.Slice()
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}
