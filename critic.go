package deepthink

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Critic scores candidates against a fixed rubric and produces a strict
// total order over them.
type Critic struct {
	gw  caller
	cfg Config
}

// NewCritic creates a critic using the given gateway.
func NewCritic(gw caller, cfg Config) *Critic {
	return &Critic{gw: gw, cfg: cfg}
}

type criticReply struct {
	Evaluations []struct {
		PathIndex  int      `json:"path_index"`
		Scores     Scores   `json:"scores"`
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
	} `json:"evaluations"`
}

// Evaluate scores the successful candidates in one call and returns
// evaluations sorted best-first. Ties on total score break toward the
// lower path index, so the order is always strict. Candidates the model
// skipped get a zero evaluation rather than vanish.
func (c *Critic) Evaluate(ctx context.Context, runID, query string, plan *Plan, candidates []Candidate) ([]Evaluation, error) {
	succeeded := make(map[int]bool)
	for _, cand := range candidates {
		if cand.Status == CandidateSucceeded {
			succeeded[cand.PathIndex] = true
		}
	}
	if len(succeeded) == 0 {
		return nil, NewStageError(StageCritic, runID, ErrInsufficientCandidates)
	}

	prompt := fmt.Sprintf(criticPromptTmpl,
		query,
		strings.Join(plan.SuccessCriteria, "; "),
		formatCandidatesForCritic(candidates),
	)

	var reply criticReply
	err := invokeJSON(ctx, c.gw, runID, prompt, GenParams{
		Temperature: c.cfg.CriticTemp,
		MaxTokens:   c.cfg.MaxOutputTokens,
	}, &reply)
	if err != nil {
		return nil, NewStageError(StageCritic, runID, err)
	}

	evals := make([]Evaluation, 0, len(succeeded))
	seen := make(map[int]bool)
	for _, raw := range reply.Evaluations {
		if !succeeded[raw.PathIndex] || seen[raw.PathIndex] {
			continue
		}
		seen[raw.PathIndex] = true
		evals = append(evals, Evaluation{
			PathIndex:  raw.PathIndex,
			Scores:     clampScores(raw.Scores),
			Strengths:  raw.Strengths,
			Weaknesses: raw.Weaknesses,
		})
	}
	// The model skipping a candidate must not make it disappear from
	// the ranking.
	for idx := range succeeded {
		if !seen[idx] {
			evals = append(evals, Evaluation{PathIndex: idx})
		}
	}

	RankEvaluations(evals)
	return evals, nil
}

// RankEvaluations computes totals, sorts best-first with ties broken by
// ascending path index, and assigns ranks 1..n.
func RankEvaluations(evals []Evaluation) {
	for i := range evals {
		evals[i].Total = evals[i].Scores.Total()
	}
	sort.SliceStable(evals, func(i, j int) bool {
		if evals[i].Total != evals[j].Total {
			return evals[i].Total > evals[j].Total
		}
		return evals[i].PathIndex < evals[j].PathIndex
	})
	for i := range evals {
		evals[i].Rank = i + 1
	}
}

func clampScores(s Scores) Scores {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 10 {
			return 10
		}
		return v
	}
	return Scores{
		Correctness:  clamp(s.Correctness),
		Completeness: clamp(s.Completeness),
		Originality:  clamp(s.Originality),
		Evidence:     clamp(s.Evidence),
		Clarity:      clamp(s.Clarity),
	}
}
