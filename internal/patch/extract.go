// Package patch pulls a unified diff out of a model completion and applies it to a checkout.
package patch

import (
	"errors"
	"strings"
)

const (
	openMarker  = "```diff"
	closeMarker = "```"
)

var (
	// ErrNoDiffBlock means the completion has no ```diff fenced block
	ErrNoDiffBlock = errors.New("no ```diff block found in completion")
	// ErrEmptyDiff means the fenced block was found but contains nothing
	ErrEmptyDiff = errors.New("```diff block is empty")
)

// Extract returns the text between the first "```diff" marker and the next "```" marker, with surrounding whitespace
// removed. An unterminated block runs to the end of the text
func Extract(completion string) (string, error) {
	diff, ok := between(completion)
	if !ok {
		return "", ErrNoDiffBlock
	}
	if diff == "" {
		return "", ErrEmptyDiff
	}
	return diff, nil
}

// ExtractLenient behaves like Extract, except that a completion without a "```diff" marker is returned verbatim.
// Commentary without a diff will therefore be handed to git apply as-is
func ExtractLenient(completion string) string {
	diff, ok := between(completion)
	if !ok {
		return completion
	}
	return diff
}

// ContainsDiffKeyword reports whether the completion mentions "diff" anywhere. It is the only guard applied before
// lenient extraction
func ContainsDiffKeyword(completion string) bool {
	return strings.Contains(completion, "diff")
}

func between(completion string) (string, bool) {
	start := strings.Index(completion, openMarker)
	if start < 0 {
		return "", false
	}
	rest := completion[start+len(openMarker):]
	if end := strings.Index(rest, closeMarker); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}
