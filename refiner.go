package deepthink

import (
	"context"
	"fmt"
)

// Refiner synthesizes the top-ranked candidates into one answer.
type Refiner struct {
	gw  caller
	cfg Config
}

// NewRefiner creates a refiner using the given gateway.
func NewRefiner(gw caller, cfg Config) *Refiner {
	return &Refiner{gw: gw, cfg: cfg}
}

type refinerReply struct {
	Answer            string   `json:"answer"`
	Confidence        string   `json:"confidence"`
	SynthesisApproach string   `json:"synthesis_approach"`
	ImprovementsMade  []string `json:"improvements_made"`
}

// Refine merges the given top evaluations (already best-first) with
// their candidates. The caller selects top-K; the refiner takes what it
// is given.
func (r *Refiner) Refine(ctx context.Context, runID, query string, candidates []Candidate, top []Evaluation) (*RefinementResult, error) {
	if len(top) == 0 {
		return nil, NewStageError(StageRefiner, runID, ErrInsufficientCandidates)
	}

	prompt := fmt.Sprintf(refinerPromptTmpl, query, formatTopForRefiner(candidates, top))

	var reply refinerReply
	err := invokeJSON(ctx, r.gw, runID, prompt, GenParams{
		Temperature: r.cfg.RefinerTemp,
		MaxTokens:   r.cfg.MaxOutputTokens,
	}, &reply)
	if err != nil {
		return nil, NewStageError(StageRefiner, runID, err)
	}
	if reply.Answer == "" {
		return nil, NewStageError(StageRefiner, runID, fmt.Errorf("%w: empty answer", ErrMalformedOutput))
	}

	sources := make([]int, 0, len(top))
	for _, ev := range top {
		sources = append(sources, ev.PathIndex)
	}
	return &RefinementResult{
		Answer:            reply.Answer,
		SourcePaths:       sources,
		Confidence:        normalizeConfidence(reply.Confidence),
		SynthesisApproach: reply.SynthesisApproach,
		ImprovementsMade:  reply.ImprovementsMade,
	}, nil
}
