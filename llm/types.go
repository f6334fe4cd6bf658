// Package llm provides backends for remote generative-inference APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// LLM is the minimal backend contract. Implementations report transport
// and API failures as *APIError so callers can classify them; Generate
// must honor ctx cancellation.
type LLM interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is one generation call.
type Request struct {
	// Model overrides the backend's default model when non-empty.
	Model string
	// Prompt is the full instruction text.
	Prompt string
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxOutputTokens caps generation length. Zero uses the backend
	// default.
	MaxOutputTokens int
	// ResponseMIMEType requests a structured reply format, for example
	// "application/json". Empty means plain text.
	ResponseMIMEType string
	// Seed makes sampling reproducible when the backend supports it.
	// Nil means unseeded.
	Seed *int64
}

// Response is a completed generation.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
}

// APIError reports an HTTP-level failure from the backend.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d (%s)", e.StatusCode, e.Status)
}

// Backend terminal conditions.
var (
	// ErrBlocked indicates the backend refused to generate for this
	// content.
	ErrBlocked = errors.New("generation blocked by content policy")

	// ErrEmptyResponse indicates the backend returned no text.
	ErrEmptyResponse = errors.New("empty response from backend")
)
