// Package mock provides an in-memory implementation of the database
// interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/facebot/internal/database"
)

// Store is an in-memory database.Store with optional error injection.
type Store struct {
	mu       sync.RWMutex
	faces    []database.StoredFace
	notes    map[string]string
	models   []database.StoredModel
	users    map[string]string
	counters map[string]map[string]int
	nextID   int64

	// Error injection
	FaceError    error
	NoteError    error
	ModelError   error
	UserError    error
	CounterError error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		notes:    make(map[string]string),
		users:    make(map[string]string),
		counters: make(map[string]map[string]int),
		nextID:   1,
	}
}

func (s *Store) AddFace(ctx context.Context, face database.StoredFace) (int64, error) {
	if s.FaceError != nil {
		return 0, s.FaceError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	face.ID = s.nextID
	s.nextID++
	if face.CreatedAt.IsZero() {
		face.CreatedAt = time.Now()
	}
	s.faces = append(s.faces, face)
	return face.ID, nil
}

func (s *Store) GetFaces(ctx context.Context) ([]database.StoredFace, error) {
	if s.FaceError != nil {
		return nil, s.FaceError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.StoredFace, len(s.faces))
	copy(out, s.faces)
	return out, nil
}

func (s *Store) GetFacesByLabel(ctx context.Context, label string) ([]database.StoredFace, error) {
	if s.FaceError != nil {
		return nil, s.FaceError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.StoredFace
	for _, f := range s.faces {
		if f.Label == label {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) GetReferenceFace(ctx context.Context, label string) (*database.StoredFace, error) {
	if s.FaceError != nil {
		return nil, s.FaceError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.faces {
		if s.faces[i].Label == label {
			f := s.faces[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateFaceEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if s.FaceError != nil {
		return s.FaceError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.faces {
		if s.faces[i].ID == id {
			s.faces[i].Embedding = embedding
			return nil
		}
	}
	return nil
}

func (s *Store) FindLabel(ctx context.Context, label string) (bool, error) {
	if s.FaceError != nil {
		return false, s.FaceError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.faces {
		if f.Label == label {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListLabels(ctx context.Context) ([]string, error) {
	if s.FaceError != nil {
		return nil, s.FaceError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, f := range s.faces {
		if !seen[f.Label] {
			seen[f.Label] = true
			out = append(out, f.Label)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CountFaces(ctx context.Context) (int, error) {
	if s.FaceError != nil {
		return 0, s.FaceError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.faces), nil
}

func (s *Store) UpsertNote(ctx context.Context, label, note string) error {
	if s.NoteError != nil {
		return s.NoteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[label] = note
	return nil
}

func (s *Store) GetNote(ctx context.Context, label string) (*database.Note, error) {
	if s.NoteError != nil {
		return nil, s.NoteError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[label]
	if !ok {
		return nil, nil
	}
	return &database.Note{Label: label, Note: note}, nil
}

func (s *Store) AddModel(ctx context.Context, model database.StoredModel) error {
	if s.ModelError != nil {
		return s.ModelError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	s.models = append(s.models, model)
	return nil
}

func (s *Store) GetLatestModel(ctx context.Context) (*database.StoredModel, error) {
	if s.ModelError != nil {
		return nil, s.ModelError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.models) == 0 {
		return nil, nil
	}
	latest := s.models[0]
	for _, m := range s.models[1:] {
		if m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	return &latest, nil
}

func (s *Store) DeleteOutdatedModels(ctx context.Context) error {
	if s.ModelError != nil {
		return s.ModelError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.models) <= 1 {
		return nil
	}
	latest := s.models[0]
	for _, m := range s.models[1:] {
		if m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	s.models = []database.StoredModel{latest}
	return nil
}

// ModelCount returns the number of stored model versions (test helper).
func (s *Store) ModelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.models)
}

func (s *Store) AddUser(ctx context.Context, username, userType string) error {
	if s.UserError != nil {
		return s.UserError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		s.users[username] = userType
	}
	return nil
}

func (s *Store) RemoveUser(ctx context.Context, username, userType string) error {
	if s.UserError != nil {
		return s.UserError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[username] == userType {
		delete(s.users, username)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, username string) (*database.User, error) {
	if s.UserError != nil {
		return nil, s.UserError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	userType, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	return &database.User{Username: username, Type: userType}, nil
}

func (s *Store) ListUsers(ctx context.Context, userType string) ([]database.User, error) {
	if s.UserError != nil {
		return nil, s.UserError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.User
	for name, t := range s.users {
		if t == userType {
			out = append(out, database.User{Username: name, Type: t})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) IncrCounter(ctx context.Context, day, field string) error {
	if s.CounterError != nil {
		return s.CounterError
	}
	if !database.ValidCounter(field) {
		return database.ErrUnknownCounter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[day] == nil {
		s.counters[day] = make(map[string]int)
	}
	s.counters[day][field]++
	return nil
}

func (s *Store) GetCounters(ctx context.Context, limit int) ([]database.DayCounters, error) {
	if s.CounterError != nil {
		return nil, s.CounterError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	days := make([]string, 0, len(s.counters))
	for d := range s.counters {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	out := make([]database.DayCounters, 0, len(days))
	for _, d := range days {
		c := s.counters[d]
		out = append(out, database.DayCounters{
			Day:     d,
			Train:   c[database.CounterTrain],
			Predict: c[database.CounterPredict],
			Label:   c[database.CounterLabel],
			Retrain: c[database.CounterRetrain],
		})
	}
	return out, nil
}
