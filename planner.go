package deepthink

import (
	"context"
	"fmt"
)

// Planner analyzes a query before fan-out.
type Planner struct {
	gw  caller
	cfg Config
}

// NewPlanner creates a planner using the given gateway.
func NewPlanner(gw caller, cfg Config) *Planner {
	return &Planner{gw: gw, cfg: cfg}
}

// Plan produces the run's plan. The suggested path count is clamped to
// the configured bounds, so a wild model suggestion cannot blow the
// budget.
func (p *Planner) Plan(ctx context.Context, runID, query string) (*Plan, error) {
	prompt := fmt.Sprintf(plannerPromptTmpl, query, MinPaths, p.cfg.NPaths)

	var plan Plan
	err := invokeJSON(ctx, p.gw, runID, prompt, GenParams{
		Temperature: p.cfg.PlannerTemp,
		MaxTokens:   p.cfg.MaxOutputTokens,
	}, &plan)
	if err != nil {
		return nil, NewStageError(StagePlanner, runID, err)
	}

	if plan.Task == "" {
		plan.Task = query
	}
	if plan.PathCount < MinPaths {
		plan.PathCount = p.cfg.NPaths
	}
	if plan.PathCount > p.cfg.NPaths {
		plan.PathCount = p.cfg.NPaths
	}
	if !plan.NeedsResearch {
		plan.ResearchQueries = nil
	}
	return &plan, nil
}
