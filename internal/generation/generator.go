// Package generation wraps generative language model calls behind the
// Generator capability.
//
// Generators return transport and backend failures as errors; converting a
// failure into a user-visible answer string is the retrieval orchestrator's
// job, so callers always retain the retrieved sources regardless of
// generation outcome.
package generation

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrGenerationFailed indicates the model call failed.
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Generator produces text from a fully assembled prompt.
type Generator interface {
	// Generate returns the model's completion for the prompt. The caller's
	// context carries the timeout/cancellation boundary; generation is the
	// dominant-latency step of a query.
	Generate(ctx context.Context, prompt string) (string, error)
}
