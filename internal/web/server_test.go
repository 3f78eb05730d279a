package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/facebot/internal/config"
	"github.com/kozaktomas/facebot/internal/database"
	"github.com/kozaktomas/facebot/internal/database/mock"
	"github.com/kozaktomas/facebot/internal/recognizer"
	"github.com/kozaktomas/facebot/internal/service"
)

func newTestServer(t *testing.T, store database.Store) *Server {
	t.Helper()
	svc := service.New(store, nil, nil, recognizer.DefaultOptions(), time.UTC)
	return NewServer(&config.WebConfig{Host: "127.0.0.1", Port: 0}, svc)
}

// seedStore trains one face and persists a model snapshot directly.
func seedStore(t *testing.T, store *mock.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.AddFace(ctx, database.StoredFace{
		Label:     "alice",
		Embedding: []float32{1, 0, 0, 0},
		Image:     []byte("jpeg-bytes"),
	}); err != nil {
		t.Fatalf("AddFace failed: %v", err)
	}

	clf := recognizer.New()
	if err := clf.Fit([][]float32{{1, 0, 0, 0}}, []string{"alice"}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	blob, err := clf.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if err := store.AddModel(ctx, database.StoredModel{
		ID:        "00000000-0000-0000-0000-000000000001",
		Blob:      blob,
		FaceCount: 1,
	}); err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, mock.NewStore())

	rec := doRequest(s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestGetStats(t *testing.T) {
	store := mock.NewStore()
	seedStore(t, store)
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stats service.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats.FaceCount != 1 {
		t.Errorf("expected face count 1, got %d", stats.FaceCount)
	}
	if stats.Model == nil || stats.Model.FaceCount != 1 {
		t.Errorf("unexpected model info: %+v", stats.Model)
	}
}

func TestGetLabels(t *testing.T) {
	store := mock.NewStore()
	seedStore(t, store)
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/labels")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body["labels"]) != 1 || body["labels"][0] != "alice" {
		t.Errorf("unexpected labels: %v", body["labels"])
	}
}

func TestGetLabelsEmpty(t *testing.T) {
	s := newTestServer(t, mock.NewStore())

	rec := doRequest(s, http.MethodGet, "/api/v1/labels")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["labels"] == nil || len(body["labels"]) != 0 {
		t.Errorf("expected empty labels array, got %v", body["labels"])
	}
}

func TestGetModel(t *testing.T) {
	store := mock.NewStore()
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/model")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without model, got %d", rec.Code)
	}

	seedStore(t, store)
	rec = doRequest(s, http.MethodGet, "/api/v1/model")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var model service.ModelInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &model); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if model.ID == "" || model.FaceCount != 1 {
		t.Errorf("unexpected model: %+v", model)
	}
}
