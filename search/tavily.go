package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily queries the Tavily search API.
type Tavily struct {
	apiKey     string
	endpoint   string
	depth      string
	client     *http.Client
	retryDelay time.Duration
}

// TavilyOption configures a Tavily provider.
type TavilyOption func(*Tavily)

// WithDepth sets the search depth, "basic" or "advanced".
func WithDepth(depth string) TavilyOption {
	return func(t *Tavily) { t.depth = depth }
}

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(url string) TavilyOption {
	return func(t *Tavily) { t.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(t *Tavily) { t.client = c }
}

// NewTavily creates a provider. An empty key falls back to the
// TAVILY_API_KEY environment variable.
func NewTavily(apiKey string, opts ...TavilyOption) *Tavily {
	if apiKey == "" {
		apiKey = os.Getenv("TAVILY_API_KEY")
	}
	t := &Tavily{
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		depth:      "advanced",
		client:     &http.Client{},
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search implements Provider.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tavily: no API key configured")
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: t.depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshaling request: %w", err)
	}

	var resp *http.Response
	delay := t.retryDelay
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("tavily: creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tavily: sending request: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling the delay up to 30 s.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tavily: status %d: %s", resp.StatusCode, string(body))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tavily: parsing response: %w", err)
	}

	results := make([]Result, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return results, nil
}
