package annotate

import (
	"fmt"
	"strings"
)

// Caption builds the prediction caption, one "label: p%" line per face.
func Caption(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s: %.2f%%\n", r.Label, r.Probability*100)
	}
	return b.String()
}

// LabeledNote is one per-label note line for the reply after a prediction.
type LabeledNote struct {
	Label string
	Note  string
}

// NotesText builds the notes reply, one "label: note" line per label.
func NotesText(notes []LabeledNote) string {
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "%s: %s\n", n.Label, n.Note)
	}
	return b.String()
}
