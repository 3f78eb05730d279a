// Package service ties the encoder, classifier and store together: it owns
// the train/predict/retrain flows and the in-memory model cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/facebot/internal/annotate"
	"github.com/kozaktomas/facebot/internal/database"
	"github.com/kozaktomas/facebot/internal/encoder"
	"github.com/kozaktomas/facebot/internal/recognizer"
	"github.com/kozaktomas/facebot/internal/vision"
)

var (
	// ErrNoModel is returned when prediction is requested before any
	// training happened.
	ErrNoModel = errors.New("no model trained for prediction")
	// ErrLabelNotFound is returned when a note targets an untrained label.
	ErrLabelNotFound = errors.New("label does not exist")
	// ErrNoVision is returned when /suggestnote runs without a provider.
	ErrNoVision = vision.ErrNotConfigured
)

// Encoder is the face encoding extraction dependency.
type Encoder interface {
	Encode(ctx context.Context, imageData []byte) ([]encoder.Face, error)
	EncodeSingle(ctx context.Context, imageData []byte) (*encoder.Face, error)
}

// Service orchestrates training, prediction and model persistence.
type Service struct {
	store   database.Store
	encoder Encoder
	vision  vision.Provider // nil when not configured
	opts    recognizer.Options
	tz      *time.Location

	mu         sync.RWMutex
	classifier *recognizer.Classifier // cached latest model, nil until loaded
	modelID    string
}

// New creates a service. visionProvider may be nil.
func New(store database.Store, enc Encoder, visionProvider vision.Provider, opts recognizer.Options, tz *time.Location) *Service {
	if tz == nil {
		tz = time.UTC
	}
	return &Service{
		store:   store,
		encoder: enc,
		vision:  visionProvider,
		opts:    opts,
		tz:      tz,
	}
}

// PredictResult is everything the bot sends back for one photo.
type PredictResult struct {
	Image      []byte // annotated PNG
	Caption    string
	Notes      []annotate.LabeledNote
	References []Reference
}

// Reference is one stored example photo for a predicted label.
type Reference struct {
	Label string
	Image []byte
}

// TrainImage encodes the single face on the photo, refits the classifier
// over the full training set plus the new face, persists the new model
// version and stores the face itself.
func (s *Service) TrainImage(ctx context.Context, imageData []byte, label string) error {
	label = database.NormalizeLabel(label)
	if label == "" {
		return errors.New("label must not be empty")
	}

	face, err := s.encoder.EncodeSingle(ctx, imageData)
	if err != nil {
		return err
	}

	stored, err := s.store.GetFaces(ctx)
	if err != nil {
		return fmt.Errorf("load training set: %w", err)
	}

	encodings := make([][]float32, 0, len(stored)+1)
	labels := make([]string, 0, len(stored)+1)
	for _, f := range stored {
		encodings = append(encodings, f.Embedding)
		labels = append(labels, f.Label)
	}
	encodings = append(encodings, face.Encoding)
	labels = append(labels, label)

	clf := recognizer.New()
	if err := clf.Fit(encodings, labels); err != nil {
		return fmt.Errorf("fit classifier: %w", err)
	}

	if err := s.persistModel(ctx, clf, len(encodings)); err != nil {
		return err
	}

	if _, err := s.store.AddFace(ctx, database.StoredFace{
		Label:     label,
		Embedding: face.Encoding,
		Image:     imageData,
	}); err != nil {
		return fmt.Errorf("store face: %w", err)
	}

	s.bumpCounter(ctx, database.CounterTrain)
	log.Info().Str("label", label).Int("faces", len(encodings)).Msg("model trained")
	return nil
}

// PredictImage classifies every face on the photo and assembles the
// annotated image, caption, notes and reference photos.
func (s *Service) PredictImage(ctx context.Context, imageData []byte) (*PredictResult, error) {
	faces, err := s.encoder.Encode(ctx, imageData)
	if err != nil {
		return nil, err
	}

	clf, err := s.loadClassifier(ctx)
	if err != nil {
		return nil, err
	}

	encodings := make([][]float32, len(faces))
	for i, f := range faces {
		encodings[i] = f.Encoding
	}
	preds, err := clf.Predict(encodings, s.opts)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	results := make([]annotate.Result, len(preds))
	for i, p := range preds {
		results[i] = annotate.Result{
			Label:       p.Label,
			Probability: p.Probability,
			Box:         faces[i].Box,
		}
	}

	annotated, err := annotate.Render(imageData, results)
	if err != nil {
		return nil, fmt.Errorf("annotate image: %w", err)
	}

	notes, refs, err := s.collectNotes(ctx, preds)
	if err != nil {
		return nil, err
	}

	s.bumpCounter(ctx, database.CounterPredict)
	return &PredictResult{
		Image:      annotated,
		Caption:    annotate.Caption(results),
		Notes:      notes,
		References: refs,
	}, nil
}

// collectNotes gathers the note and one reference photo for each distinct
// predicted label.
func (s *Service) collectNotes(ctx context.Context, preds []recognizer.Prediction) ([]annotate.LabeledNote, []Reference, error) {
	seen := make(map[string]bool)
	var notes []annotate.LabeledNote
	var refs []Reference

	for _, p := range preds {
		if seen[p.Label] {
			continue
		}
		seen[p.Label] = true

		note, err := s.store.GetNote(ctx, p.Label)
		if err != nil {
			return nil, nil, fmt.Errorf("load note: %w", err)
		}
		if note == nil {
			notes = append(notes, annotate.LabeledNote{Label: p.Label, Note: "No note"})
		} else {
			notes = append(notes, annotate.LabeledNote{Label: p.Label, Note: note.Note})
		}

		ref, err := s.store.GetReferenceFace(ctx, p.Label)
		if err != nil {
			return nil, nil, fmt.Errorf("load reference face: %w", err)
		}
		if ref != nil {
			refs = append(refs, Reference{Label: p.Label, Image: ref.Image})
		}
	}
	return notes, refs, nil
}

// Retrain re-encodes every stored face photo and refits the classifier.
// Used after the encoder model is updated. progress may be nil.
func (s *Service) Retrain(ctx context.Context, progress func(done, total int)) error {
	stored, err := s.store.GetFaces(ctx)
	if err != nil {
		return fmt.Errorf("load faces: %w", err)
	}
	if len(stored) == 0 {
		return nil
	}

	for i, f := range stored {
		face, err := s.encoder.EncodeSingle(ctx, f.Image)
		if err != nil {
			return fmt.Errorf("re-encode face %d (%s): %w", f.ID, f.Label, err)
		}
		if err := s.store.UpdateFaceEmbedding(ctx, f.ID, face.Encoding); err != nil {
			return err
		}
		if progress != nil {
			progress(i+1, len(stored))
		}
	}

	stored, err = s.store.GetFaces(ctx)
	if err != nil {
		return fmt.Errorf("reload faces: %w", err)
	}
	encodings := make([][]float32, len(stored))
	labels := make([]string, len(stored))
	for i, f := range stored {
		encodings[i] = f.Embedding
		labels[i] = f.Label
	}

	clf := recognizer.New()
	if err := clf.Fit(encodings, labels); err != nil {
		return fmt.Errorf("fit classifier: %w", err)
	}
	if err := s.persistModel(ctx, clf, len(stored)); err != nil {
		return err
	}

	s.bumpCounter(ctx, database.CounterRetrain)
	log.Info().Int("faces", len(stored)).Msg("model re-extracted and retrained")
	return nil
}

// LabelExists reports whether a label has trained faces.
func (s *Service) LabelExists(ctx context.Context, label string) (bool, error) {
	return s.store.FindLabel(ctx, database.NormalizeLabel(label))
}

// AttachNote stores a note for an existing label.
func (s *Service) AttachNote(ctx context.Context, label, note string) error {
	label = database.NormalizeLabel(label)
	exists, err := s.store.FindLabel(ctx, label)
	if err != nil {
		return fmt.Errorf("find label: %w", err)
	}
	if !exists {
		return ErrLabelNotFound
	}
	if err := s.store.UpsertNote(ctx, label, note); err != nil {
		return err
	}
	s.bumpCounter(ctx, database.CounterLabel)
	return nil
}

// SuggestNote drafts a note for a label from its reference photo using the
// vision provider.
func (s *Service) SuggestNote(ctx context.Context, label string) (string, error) {
	if s.vision == nil {
		return "", ErrNoVision
	}
	label = database.NormalizeLabel(label)

	ref, err := s.store.GetReferenceFace(ctx, label)
	if err != nil {
		return "", fmt.Errorf("load reference face: %w", err)
	}
	if ref == nil {
		return "", ErrLabelNotFound
	}

	text, err := s.vision.DescribePortrait(ctx, ref.Image)
	if err != nil {
		return "", fmt.Errorf("describe portrait: %w", err)
	}
	return text, nil
}

// persistModel snapshots the classifier, stores it as the new version,
// prunes old versions and swaps the in-memory cache.
func (s *Service) persistModel(ctx context.Context, clf *recognizer.Classifier, faceCount int) error {
	blob, err := clf.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot classifier: %w", err)
	}

	model := database.StoredModel{
		ID:        uuid.NewString(),
		Blob:      blob,
		FaceCount: faceCount,
	}
	if err := s.store.AddModel(ctx, model); err != nil {
		return fmt.Errorf("store model: %w", err)
	}
	if err := s.store.DeleteOutdatedModels(ctx); err != nil {
		return fmt.Errorf("prune models: %w", err)
	}

	s.mu.Lock()
	s.classifier = clf
	s.modelID = model.ID
	s.mu.Unlock()
	return nil
}

// loadClassifier returns the cached classifier, falling back to the latest
// persisted snapshot.
func (s *Service) loadClassifier(ctx context.Context) (*recognizer.Classifier, error) {
	s.mu.RLock()
	cached := s.classifier
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	model, err := s.store.GetLatestModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest model: %w", err)
	}
	if model == nil {
		return nil, ErrNoModel
	}

	clf := recognizer.New()
	if err := clf.Restore(model.Blob); err != nil {
		return nil, fmt.Errorf("restore model %s: %w", model.ID, err)
	}

	s.mu.Lock()
	// Another goroutine may have loaded or trained meanwhile; keep theirs.
	if s.classifier == nil {
		s.classifier = clf
		s.modelID = model.ID
	}
	clf = s.classifier
	s.mu.Unlock()
	return clf, nil
}

// Stats summarizes the trained state for the ops API.
type Stats struct {
	FaceCount int                    `json:"face_count"`
	Labels    []string               `json:"labels"`
	Model     *ModelInfo             `json:"model,omitempty"`
	Counters  []database.DayCounters `json:"counters"`
}

// ModelInfo is the latest model version metadata.
type ModelInfo struct {
	ID        string    `json:"id"`
	FaceCount int       `json:"face_count"`
	CreatedAt time.Time `json:"created_at"`
}

// GetStats collects counts, labels, model metadata and recent counters.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	count, err := s.store.CountFaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("count faces: %w", err)
	}
	labels, err := s.store.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	counters, err := s.store.GetCounters(ctx, 30)
	if err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}

	stats := &Stats{FaceCount: count, Labels: labels, Counters: counters}
	model, err := s.store.GetLatestModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest model: %w", err)
	}
	if model != nil {
		stats.Model = &ModelInfo{ID: model.ID, FaceCount: model.FaceCount, CreatedAt: model.CreatedAt}
	}
	return stats, nil
}

// LatestModel returns the latest persisted model metadata, or nil.
func (s *Service) LatestModel(ctx context.Context) (*ModelInfo, error) {
	model, err := s.store.GetLatestModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest model: %w", err)
	}
	if model == nil {
		return nil, nil
	}
	return &ModelInfo{ID: model.ID, FaceCount: model.FaceCount, CreatedAt: model.CreatedAt}, nil
}

// ListLabels returns the distinct trained labels.
func (s *Service) ListLabels(ctx context.Context) ([]string, error) {
	return s.store.ListLabels(ctx)
}

// bumpCounter records command usage; failures are logged, not fatal.
func (s *Service) bumpCounter(ctx context.Context, field string) {
	day := time.Now().In(s.tz).Format("2006-01-02")
	if err := s.store.IncrCounter(ctx, day, field); err != nil {
		log.Warn().Err(err).Str("field", field).Msg("failed to bump counter")
	}
}
