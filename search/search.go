// Package search provides web-search providers for the research stage.
package search

import "context"

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Provider executes search queries. Implementations must honor ctx
// cancellation and return an error rather than hang.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}
