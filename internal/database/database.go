// Package database defines the storage interfaces for faces, notes, model
// versions, users and usage counters, plus shared helpers. Backends live in
// the postgres and mock subpackages.
package database

import (
	"context"
	"errors"
)

// ErrUnknownCounter is returned for counter fields outside the known set.
var ErrUnknownCounter = errors.New("unknown counter field")

// FaceStore persists trained faces.
type FaceStore interface {
	// AddFace stores a new face row and returns its ID.
	AddFace(ctx context.Context, face StoredFace) (int64, error)
	// GetFaces returns all faces ordered by ID.
	GetFaces(ctx context.Context) ([]StoredFace, error)
	// GetFacesByLabel returns all faces trained under label.
	GetFacesByLabel(ctx context.Context, label string) ([]StoredFace, error)
	// GetReferenceFace returns the oldest face for a label, or nil.
	GetReferenceFace(ctx context.Context, label string) (*StoredFace, error)
	// UpdateFaceEmbedding replaces the embedding of an existing face row.
	UpdateFaceEmbedding(ctx context.Context, id int64, embedding []float32) error
	// FindLabel reports whether any face is trained under label.
	FindLabel(ctx context.Context, label string) (bool, error)
	// ListLabels returns the distinct trained labels.
	ListLabels(ctx context.Context) ([]string, error)
	// CountFaces returns the number of stored faces.
	CountFaces(ctx context.Context) (int, error)
}

// NoteStore persists per-label notes.
type NoteStore interface {
	// UpsertNote inserts or replaces the note for a label.
	UpsertNote(ctx context.Context, label, note string) error
	// GetNote returns the note for a label, or nil when absent.
	GetNote(ctx context.Context, label string) (*Note, error)
}

// ModelStore persists classifier versions.
type ModelStore interface {
	// AddModel stores a new model version.
	AddModel(ctx context.Context, model StoredModel) error
	// GetLatestModel returns the newest model version, or nil when none.
	GetLatestModel(ctx context.Context) (*StoredModel, error)
	// DeleteOutdatedModels removes every version except the newest.
	DeleteOutdatedModels(ctx context.Context) error
}

// UserStore persists chat users and their roles.
type UserStore interface {
	// AddUser registers a user with a role; existing rows are untouched.
	AddUser(ctx context.Context, username, userType string) error
	// RemoveUser deletes a user with the given role.
	RemoveUser(ctx context.Context, username, userType string) error
	// FindUser returns the user, or nil when not registered.
	FindUser(ctx context.Context, username string) (*User, error)
	// ListUsers returns all users with the given role.
	ListUsers(ctx context.Context, userType string) ([]User, error)
}

// CounterStore tracks per-day command usage.
type CounterStore interface {
	// IncrCounter increments the named counter for day (YYYY-MM-DD).
	IncrCounter(ctx context.Context, day, field string) error
	// GetCounters returns recorded days ordered newest first, up to limit.
	GetCounters(ctx context.Context, limit int) ([]DayCounters, error)
}

// Store aggregates every repository the service needs.
type Store interface {
	FaceStore
	NoteStore
	ModelStore
	UserStore
	CounterStore
}

// ValidCounter reports whether field is a known counter name.
func ValidCounter(field string) bool {
	switch field {
	case CounterTrain, CounterPredict, CounterLabel, CounterRetrain:
		return true
	}
	return false
}
