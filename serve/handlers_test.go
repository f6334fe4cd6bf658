package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	deepthink "github.com/everydev1618/godeepthink"
	"github.com/everydev1618/godeepthink/llm"
)

// cannedLLM answers each stage with a fixed reply, keyed on prompt
// content.
type cannedLLM struct{}

func (cannedLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var text string
	switch {
	case strings.Contains(req.Prompt, "reasoning strategist"):
		text = `{"task": "t", "reasoning_type": "analytical", "key_aspects": ["a"],
			"complexity_level": "low", "success_criteria": ["s"], "needs_research": false, "path_count": 2}`
	case strings.Contains(req.Prompt, "reasoning path"):
		text = `{"approach": "x", "thoughts": "y", "answer": "candidate", "confidence": "high", "potential_issues": []}`
	case strings.Contains(req.Prompt, "rigorous evaluator"):
		text = `{"evaluations": [
			{"path_index": 0, "scores": {"correctness": 7, "completeness": 7, "originality": 7, "evidence": 7, "clarity": 7}},
			{"path_index": 1, "scores": {"correctness": 5, "completeness": 5, "originality": 5, "evidence": 5, "clarity": 5}}]}`
	case strings.Contains(req.Prompt, "synthesis expert"):
		text = `{"answer": "final answer", "confidence": "high", "synthesis_approach": "merge", "improvements_made": []}`
	default:
		text = "{}"
	}
	return &llm.Response{Text: text, InputTokens: 5, OutputTokens: 5}, nil
}

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := deepthink.DefaultConfig()
	cfg.NPaths = 2
	cfg.TopK = 1
	cfg.EnableMetaRefine = false

	store := NewJSONStore(filepath.Join(t.TempDir(), "runs"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	srv, err := NewServer(cannedLLM{}, cfg, ":0", WithStore(store))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHandleThink(t *testing.T) {
	_, ts := testServer(t)

	body, _ := json.Marshal(ThinkRequest{Query: "why is the sky blue"})
	resp, err := http.Post(ts.URL+"/api/deepthink", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out ThinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Answer != "final answer" {
		t.Errorf("Answer = %q", out.Answer)
	}
	if out.State != deepthink.StateCompleted {
		t.Errorf("State = %v, want completed", out.State)
	}
	if out.RunID == "" {
		t.Error("RunID should be set")
	}

	// The run is persisted and retrievable.
	getResp, err := http.Get(ts.URL + "/api/runs/" + out.RunID)
	if err != nil {
		t.Fatalf("GET run failed: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("GET run status = %d", getResp.StatusCode)
	}
	var rec RunRecord
	if err := json.NewDecoder(getResp.Body).Decode(&rec); err != nil {
		t.Fatalf("decoding record: %v", err)
	}
	if rec.Answer != "final answer" || rec.Outcome == nil {
		t.Errorf("record = %+v", rec)
	}
}

func TestHandleThinkRejectsBadRequest(t *testing.T) {
	_, ts := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"empty query", `{"query": ""}`},
		{"bad path count", `{"query": "q", "n_paths": 50}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/deepthink", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestHandleListRuns(t *testing.T) {
	_, ts := testServer(t)

	// Empty store yields an empty array, not null.
	resp, err := http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	var raw json.RawMessage
	json.NewDecoder(resp.Body).Decode(&raw)
	resp.Body.Close()
	if strings.TrimSpace(string(raw)) == "null" {
		t.Error("empty list should serialize as [], not null")
	}

	body, _ := json.Marshal(ThinkRequest{Query: "a question"})
	post, err := http.Post(ts.URL+"/api/deepthink", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()

	resp, err = http.Get(ts.URL + "/api/runs")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	var recs []*RunRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("runs = %d, want 1", len(recs))
	}
	if recs[0].Outcome != nil {
		t.Error("list entries should be summaries without the full outcome")
	}
}

func TestHandleGetRunNotFound(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/runs/nope")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleHealth(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var out healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Status != "ok" {
		t.Errorf("status = %q, want ok", out.Status)
	}
	if out.Components["backend"] != "ok" || out.Components["store"] != "ok" {
		t.Errorf("components = %v, want backend and store ok", out.Components)
	}
}

// downLLM fails every call, like an unreachable endpoint.
type downLLM struct{}

func (downLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, &llm.APIError{StatusCode: http.StatusServiceUnavailable, Status: "503"}
}

func TestHandleHealthDegradedBackend(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "runs"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	srv, err := NewServer(downLLM{}, deepthink.DefaultConfig(), ":0", WithStore(store))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	var out healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Status != "degraded" {
		t.Errorf("status = %q, want degraded", out.Status)
	}
	if out.Components["backend"] == "ok" {
		t.Error("backend component should report the probe failure")
	}
	if out.Components["store"] != "ok" {
		t.Errorf("store component = %q, want ok", out.Components["store"])
	}
}
