// Package ai ranks job listings against a profile through an external
// text-completion service and turns its free-text reply into typed rankings.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Completer is the completion-service boundary: one prompt in, raw text out.
// Nothing is guaranteed about the shape of the returned text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Ranking is one job the service chose, with a score already clamped to 0..100.
type Ranking struct {
	JobID  string
	Score  int
	Reason string
}

var (
	// ErrExtraction matches every failure to turn a reply into rankings.
	ErrExtraction = errors.New("ai: extraction failed")

	// ErrNoArray is returned when the reply holds no bracketed substring.
	ErrNoArray = fmt.Errorf("%w: no JSON array in response", ErrExtraction)
)

// ParseError reports that the extracted candidate could not be used.
type ParseError struct {
	Candidate string
	Reason    string
	Err       error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai: parse rankings: %s: %v", e.Reason, e.Err)
	}
	return "ai: parse rankings: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrExtraction
}
