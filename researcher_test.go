package deepthink

import (
	"context"
	"errors"
	"testing"

	"github.com/everydev1618/godeepthink/search"
)

// stubProvider returns fixed results or a fixed error.
type stubProvider struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubProvider) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func researchPlan() *Plan {
	return &Plan{
		Task:            "compare recent battery chemistries",
		NeedsResearch:   true,
		ResearchQueries: []string{"sodium ion batteries 2026", "solid state battery production"},
	}
}

func TestResearcherNoProviderDegrades(t *testing.T) {
	r := NewResearcher(&scriptedCaller{}, nil, DefaultConfig())

	findings := r.Research(context.Background(), "run1", researchPlan())
	if !findings.Degraded {
		t.Error("missing provider should degrade, not fail")
	}
	if len(findings.Findings) != 0 {
		t.Errorf("findings = %d, want none", len(findings.Findings))
	}
}

func TestResearcherProviderFailureDegrades(t *testing.T) {
	provider := &stubProvider{err: errors.New("search down")}
	r := NewResearcher(&scriptedCaller{}, provider, DefaultConfig())

	findings := r.Research(context.Background(), "run1", researchPlan())
	if !findings.Degraded {
		t.Error("provider failure should degrade, not fail")
	}
}

func TestResearcherCollectsAndSummarizes(t *testing.T) {
	provider := &stubProvider{results: []search.Result{
		{Title: "Paper", URL: "https://x.example", Content: "sodium ion is cheaper"},
	}}
	gw := &scriptedCaller{replies: []string{"Summary: sodium ion batteries are cheaper per kWh."}}
	r := NewResearcher(gw, provider, DefaultConfig())

	findings := r.Research(context.Background(), "run1", researchPlan())

	if findings.Degraded {
		t.Fatal("research should succeed")
	}
	// One result per query.
	if len(findings.Findings) != 2 {
		t.Errorf("findings = %d, want 2", len(findings.Findings))
	}
	if findings.Summary == "" {
		t.Error("summary should be set")
	}
	if len(provider.queries) != 2 {
		t.Errorf("queries run = %d, want 2", len(provider.queries))
	}
}

func TestResearcherSummarizationFailureKeepsFindings(t *testing.T) {
	provider := &stubProvider{results: []search.Result{
		{Title: "Paper", Content: "fact"},
	}}
	gw := &scriptedCaller{errs: []error{ErrUnavailable, ErrUnavailable}}
	r := NewResearcher(gw, provider, DefaultConfig())

	findings := r.Research(context.Background(), "run1", researchPlan())
	if findings.Degraded {
		t.Fatal("raw findings should survive a failed summary")
	}
	if len(findings.Findings) == 0 {
		t.Error("findings should be kept")
	}
	if findings.Summary != "" {
		t.Error("summary should be empty after failure")
	}
}

func TestResearcherDefaultsToTaskQuery(t *testing.T) {
	provider := &stubProvider{results: []search.Result{{Content: "fact"}}}
	gw := &scriptedCaller{replies: []string{"summary"}}
	plan := &Plan{Task: "the task", NeedsResearch: true}

	NewResearcher(gw, provider, DefaultConfig()).Research(context.Background(), "run1", plan)

	if len(provider.queries) != 1 || provider.queries[0] != "the task" {
		t.Errorf("queries = %v, want the plan task", provider.queries)
	}
}
