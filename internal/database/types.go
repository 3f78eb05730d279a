package database

import (
	"time"
)

// StoredFace is one trained face: its encoding, the label it was trained
// under, and the original photo bytes kept for retraining and reference
// replies.
type StoredFace struct {
	ID        int64
	Label     string
	Embedding []float32
	Image     []byte
	CreatedAt time.Time
}

// StoredModel is one persisted classifier version. Blob is the opaque
// snapshot produced by the recognizer; only the newest version is kept
// after pruning.
type StoredModel struct {
	ID        string // uuid
	Blob      []byte
	FaceCount int
	CreatedAt time.Time
}

// Note is a free-text annotation attached to a trained label.
type Note struct {
	Label string
	Note  string
}

// User roles, ordered user < admin < root_admin.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleRootAdmin = "root_admin"
)

// User is a registered chat user with a permission role.
type User struct {
	Username string
	Type     string
}

// Counter field names tracked per day.
const (
	CounterTrain   = "train"
	CounterPredict = "predict"
	CounterLabel   = "label"
	CounterRetrain = "retrain"
)

// DayCounters holds per-day command usage for the stats endpoint.
type DayCounters struct {
	Day     string `json:"day"` // YYYY-MM-DD in the configured timezone
	Train   int    `json:"train"`
	Predict int    `json:"predict"`
	Label   int    `json:"label"`
	Retrain int    `json:"retrain"`
}
