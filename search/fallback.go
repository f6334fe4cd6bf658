package search

import (
	"context"
	"fmt"
)

// Simulated returns placeholder results without touching the network.
// Used when no real provider is configured so the pipeline shape can be
// exercised offline.
type Simulated struct{}

// NewSimulated creates an offline provider.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Search implements Provider.
func (s *Simulated) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults <= 0 || maxResults > 3 {
		maxResults = 3
	}
	results := make([]Result, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		results = append(results, Result{
			Title:   fmt.Sprintf("Simulated result %d for %q", i+1, query),
			URL:     fmt.Sprintf("https://example.invalid/%d", i+1),
			Content: fmt.Sprintf("No live search is configured. This is placeholder context %d for the query %q.", i+1, query),
		})
	}
	return results, nil
}
