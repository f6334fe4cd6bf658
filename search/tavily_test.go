package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTavilySearch(t *testing.T) {
	var captured tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "First", "url": "https://a.example", "content": "alpha", "score": 0.9},
				{"title": "Second", "url": "https://b.example", "content": "beta", "score": 0.5},
			},
		})
	}))
	defer srv.Close()

	tav := NewTavily("key123", WithEndpoint(srv.URL), WithDepth("basic"))
	results, err := tav.Search(context.Background(), "test query", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Title != "First" || results[0].Content != "alpha" {
		t.Errorf("first result = %+v", results[0])
	}
	if captured.Query != "test query" || captured.MaxResults != 2 {
		t.Errorf("request = %+v", captured)
	}
	if captured.APIKey != "key123" || captured.SearchDepth != "basic" {
		t.Errorf("request = %+v", captured)
	}
}

func TestTavilySearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tav := NewTavily("bad-key", WithEndpoint(srv.URL))
	if _, err := tav.Search(context.Background(), "q", 3); err == nil {
		t.Fatal("Search should fail on a non-200 status")
	}
}

func TestTavilyRetriesRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Hit", "url": "https://a.example", "content": "alpha", "score": 0.9},
			},
		})
	}))
	defer srv.Close()

	tav := NewTavily("key123", WithEndpoint(srv.URL))
	tav.retryDelay = time.Millisecond

	results, err := tav.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want a retry after the 429", calls)
	}
	if len(results) != 1 || results[0].Title != "Hit" {
		t.Errorf("results = %+v", results)
	}
}

func TestTavilyRateLimitRetryHonorsCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tav := NewTavily("key123", WithEndpoint(srv.URL))
	tav.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tav.Search(ctx, "q", 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestTavilyRequiresAPIKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	tav := NewTavily("")
	if _, err := tav.Search(context.Background(), "q", 3); err == nil {
		t.Fatal("Search without a key should fail")
	}
}

func TestSimulatedSearch(t *testing.T) {
	sim := NewSimulated()
	results, err := sim.Search(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Content == "" {
			t.Error("simulated result should carry placeholder content")
		}
	}
}

func TestSimulatedSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulated().Search(ctx, "q", 3); err == nil {
		t.Fatal("Search should honor cancellation")
	}
}
