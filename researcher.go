package deepthink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/everydev1618/godeepthink/search"
)

// Researcher gathers external context when the plan asks for it. Tool
// failure never fails the run: it degrades to empty findings.
type Researcher struct {
	gw       caller
	provider search.Provider
	cfg      Config
	logger   *slog.Logger
}

// NewResearcher creates a researcher. provider may be nil, in which case
// every Research call degrades immediately.
func NewResearcher(gw caller, provider search.Provider, cfg Config) *Researcher {
	return &Researcher{
		gw:       gw,
		provider: provider,
		cfg:      cfg,
		logger:   slog.With("component", "researcher"),
	}
}

// Research runs the plan's queries against the search provider and
// summarizes the hits for the thinkers.
func (r *Researcher) Research(ctx context.Context, runID string, plan *Plan) *ResearchFindings {
	if r.provider == nil {
		r.logger.Debug("no search provider configured, skipping research", "run_id", runID)
		return &ResearchFindings{Degraded: true}
	}

	queries := plan.ResearchQueries
	if len(queries) == 0 {
		queries = []string{plan.Task}
	}
	if len(queries) > 3 {
		queries = queries[:3]
	}

	var findings []Finding
	for _, q := range queries {
		results, err := r.provider.Search(ctx, q, 3)
		if err != nil {
			r.logger.Warn("search query failed", "run_id", runID, "query", q, "error", err)
			continue
		}
		for _, res := range results {
			findings = append(findings, Finding{
				Query:   q,
				Title:   res.Title,
				URL:     res.URL,
				Content: res.Content,
			})
		}
	}

	if len(findings) == 0 {
		return &ResearchFindings{Degraded: true}
	}

	out := &ResearchFindings{Findings: findings}
	if summary, err := r.summarize(ctx, runID, plan.Task, findings); err == nil {
		out.Summary = summary
	} else {
		r.logger.Warn("summarization failed, passing raw findings", "run_id", runID, "error", err)
	}
	return out
}

func (r *Researcher) summarize(ctx context.Context, runID, task string, findings []Finding) (string, error) {
	var b strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Query, f.Title, f.Content)
	}
	prompt := fmt.Sprintf(researchSummaryPromptTmpl, task, b.String())

	resp, err := r.gw.Generate(ctx, runID, prompt, GenParams{
		Temperature: r.cfg.PlannerTemp,
		MaxTokens:   r.cfg.MaxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
