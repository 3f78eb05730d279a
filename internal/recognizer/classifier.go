// Package recognizer implements the incremental face classifier: a
// distance-weighted k-nearest-neighbor vote over an HNSW graph of trained
// face encodings, with threshold gating against unknown faces.
package recognizer

import (
	"errors"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

const (
	// UnknownLabel is reported when a prediction fails a threshold gate.
	UnknownLabel = "unknown"

	// NullLabel pads the training set when fewer than two distinct labels
	// exist, so a vote is always defined. Its zero encoding sits far from
	// any real face encoding and is filtered by the distance gate.
	NullLabel = "NULL_LABEL"

	// minVoteDistance floors neighbor distances when computing 1/d vote
	// weights, so an exact match does not divide by zero.
	minVoteDistance = 1e-9
)

// HNSW graph parameters for 128-dim face encodings.
const (
	graphMaxNeighbors = 16
)

var (
	ErrNotFitted        = errors.New("classifier is not fitted")
	ErrSizeMismatch     = errors.New("encodings and labels size mismatch")
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrCorruptSnapshot  = errors.New("corrupt classifier snapshot")
)

// Prediction is a single threshold-gated classification result.
type Prediction struct {
	Label       string
	Probability float64
	Distance    float64 // distance to the nearest trained encoding
}

// Options hold the prediction threshold gates.
type Options struct {
	DistThreshold float64 // nearest-neighbor distance above this yields UnknownLabel
	ProbThreshold float64 // vote share below this yields UnknownLabel
}

// DefaultOptions match the embedded classifier defaults.
func DefaultOptions() Options {
	return Options{DistThreshold: 0.6, ProbThreshold: 0.0}
}

// Classifier is a fitted k-NN face classifier. The zero value is unfitted;
// call Fit or Restore before Predict. Safe for concurrent Predict calls.
type Classifier struct {
	mu        sync.RWMutex
	encodings [][]float32
	labels    []string
	k         int
	graph     *hnsw.Graph[int]
}

// New returns an unfitted classifier.
func New() *Classifier {
	return &Classifier{}
}

// Fit replaces the training set and rebuilds the neighbor graph.
// The neighbor count k is round(sqrt(n)), clamped to [1, n]. When the set
// holds fewer than two distinct labels, it is padded with a zero encoding
// labeled NullLabel so voting stays well-defined.
func (c *Classifier) Fit(encodings [][]float32, labels []string) error {
	if len(encodings) != len(labels) {
		return ErrSizeMismatch
	}
	if len(encodings) == 0 {
		return ErrEmptyTrainingSet
	}

	xs := make([][]float32, len(encodings))
	copy(xs, encodings)
	ys := make([]string, len(labels))
	copy(ys, labels)

	// k comes from the real training set size; the NullLabel padding below
	// widens the candidate pool but must not inflate the neighbor count.
	k := int(math.Round(math.Sqrt(float64(len(xs)))))
	if k < 1 {
		k = 1
	}
	if k > len(xs) {
		k = len(xs)
	}

	if countDistinct(ys) < 2 {
		xs = append(xs, make([]float32, len(xs[0])))
		ys = append(ys, NullLabel)
	}

	g := hnsw.NewGraph[int]()
	g.M = graphMaxNeighbors
	g.Ml = 1.0 / float64(graphMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	for i, enc := range xs {
		g.Add(hnsw.MakeNode(i, enc))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodings = xs
	c.labels = ys
	c.k = k
	c.graph = g
	return nil
}

// Fitted reports whether the classifier can predict.
func (c *Classifier) Fitted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph != nil
}

// Size returns the number of trained encodings, including NullLabel padding.
func (c *Classifier) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.encodings)
}

// Labels returns the distinct trained labels, excluding NullLabel.
func (c *Classifier) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, l := range c.labels {
		if l == NullLabel || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// Predict classifies each query encoding. Failing either threshold gate
// reports UnknownLabel with probability 1.0 while keeping the measured
// nearest-neighbor distance.
func (c *Classifier) Predict(encodings [][]float32, opts Options) ([]Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph == nil {
		return nil, ErrNotFitted
	}

	results := make([]Prediction, 0, len(encodings))
	for _, query := range encodings {
		label, prob, nearest := c.vote(query)
		switch {
		case prob < opts.ProbThreshold:
			results = append(results, Prediction{Label: UnknownLabel, Probability: 1.0, Distance: nearest})
		case nearest <= opts.DistThreshold:
			results = append(results, Prediction{Label: label, Probability: prob, Distance: nearest})
		default:
			results = append(results, Prediction{Label: UnknownLabel, Probability: 1.0, Distance: nearest})
		}
	}
	return results, nil
}

// vote runs the distance-weighted k-NN soft vote for one query encoding.
// Caller must hold the read lock.
func (c *Classifier) vote(query []float32) (label string, prob float64, nearest float64) {
	neighbors := c.graph.Search(query, c.k)
	if len(neighbors) == 0 {
		return UnknownLabel, 1.0, math.Inf(1)
	}

	nearest = math.Inf(1)
	weights := make(map[string]float64)
	var total float64
	for _, n := range neighbors {
		d := float64(hnsw.EuclideanDistance(query, n.Value))
		if d < nearest {
			nearest = d
		}
		w := 1.0 / math.Max(d, minVoteDistance)
		weights[c.labels[n.Key]] += w
		total += w
	}

	for l, w := range weights {
		share := w / total
		if share > prob || (share == prob && l < label) {
			label = l
			prob = share
		}
	}
	return label, prob, nearest
}

func countDistinct(labels []string) int {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		seen[l] = true
	}
	return len(seen)
}
