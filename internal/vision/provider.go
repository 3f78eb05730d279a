// Package vision drafts label notes from reference photos using a vision
// language model. It is an optional assist for the /suggestnote command;
// face recognition itself never goes through these providers.
package vision

import (
	_ "embed"
	"context"
	"errors"
)

//go:embed prompts/describe_portrait.txt
var describePortraitPrompt string

// ErrNotConfigured is returned when no provider is configured.
var ErrNotConfigured = errors.New("vision provider not configured")

// Provider describes the person on a reference photo in one short note.
type Provider interface {
	Name() string
	DescribePortrait(ctx context.Context, imageData []byte) (string, error)
}
