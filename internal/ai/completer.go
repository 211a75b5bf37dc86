// Package ai requests fixes for issues from a completion model.
package ai

import (
	"context"
)

// Completer sends one prompt as a single user message and returns the model's text. Implementations make exactly one
// request at temperature 0 and never retry
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
