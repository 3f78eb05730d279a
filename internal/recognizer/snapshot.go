package recognizer

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

const snapshotVersion = 1

// snapshot is the gob wire form of a fitted classifier. Only the training
// set is serialized; the neighbor graph is rebuilt deterministically on
// Restore, so the blob stays independent of graph library internals.
type snapshot struct {
	Version   int
	Encodings [][]float32
	Labels    []string
}

// Snapshot serializes the fitted classifier into an opaque blob suitable
// for storage as a model version.
func (c *Classifier) Snapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph == nil {
		return nil, ErrNotFitted
	}

	// Serialize only the real training set; Fit re-adds NullLabel padding
	// on Restore, and a stored pad would skew the neighbor count.
	var encodings [][]float32
	var labels []string
	for i, l := range c.labels {
		if l == NullLabel {
			continue
		}
		encodings = append(encodings, c.encodings[i])
		labels = append(labels, l)
	}

	var buf bytes.Buffer
	snap := snapshot{
		Version:   snapshotVersion,
		Encodings: encodings,
		Labels:    labels,
	}
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("encode classifier snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the classifier with the state packed by Snapshot.
func (c *Classifier) Restore(blob []byte) error {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, snap.Version)
	}
	if len(snap.Encodings) != len(snap.Labels) || len(snap.Encodings) == 0 {
		return fmt.Errorf("%w: inconsistent training set", ErrCorruptSnapshot)
	}
	return c.Fit(snap.Encodings, snap.Labels)
}
