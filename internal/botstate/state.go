// Package botstate tracks where each chat user is inside a multi-step
// command interaction: training a label, annotating one, or idle.
package botstate

import "context"

// State is the per-user command state.
type State string

const (
	// StateIdle is the zero state; photos in this state go to prediction.
	StateIdle State = ""
	// StateTrain marks a user sending training photos for a label.
	StateTrain State = "train"
	// StateNote marks a user about to send note text for a label.
	StateNote State = "note"
)

// Entry is a state together with the label it operates on.
type Entry struct {
	State State
	Label string
}

// Store persists command state per user. Implementations must return the
// idle entry for unknown users and tolerate repeated Clear calls.
type Store interface {
	// Set stores the state and label for user.
	Set(ctx context.Context, user string, state State, label string) error
	// Get returns the current entry for user; Idle when unknown.
	Get(ctx context.Context, user string) (Entry, error)
	// Clear resets user to Idle. Clearing an idle user is a no-op.
	Clear(ctx context.Context, user string) error
}
