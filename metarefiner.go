package deepthink

import (
	"context"
	"fmt"
)

// MetaRefiner makes an optional final polish pass over the refined
// answer. Its failure degrades the run, never fails it.
type MetaRefiner struct {
	gw  caller
	cfg Config
}

// NewMetaRefiner creates a meta-refiner using the given gateway.
func NewMetaRefiner(gw caller, cfg Config) *MetaRefiner {
	return &MetaRefiner{gw: gw, cfg: cfg}
}

type metaRefinerReply struct {
	Answer            string   `json:"answer"`
	SynthesisType     string   `json:"synthesis_type"`
	EleganceScore     float64  `json:"elegance_score"`
	IntellectualDepth string   `json:"intellectual_depth"`
	KeyInsights       []string `json:"key_insights"`
}

// Refine polishes the refined answer.
func (m *MetaRefiner) Refine(ctx context.Context, runID, query, answer string) (*MetaRefinementResult, error) {
	prompt := fmt.Sprintf(metaRefinerPromptTmpl, query, answer)

	var reply metaRefinerReply
	err := invokeJSON(ctx, m.gw, runID, prompt, GenParams{
		Temperature: m.cfg.MetaRefinerTemp,
		MaxTokens:   m.cfg.MaxOutputTokens,
	}, &reply)
	if err != nil {
		return nil, NewStageError(StageMetaRefiner, runID, err)
	}
	if reply.Answer == "" {
		return nil, NewStageError(StageMetaRefiner, runID, fmt.Errorf("%w: empty answer", ErrMalformedOutput))
	}

	return &MetaRefinementResult{
		Answer:            reply.Answer,
		SynthesisType:     reply.SynthesisType,
		EleganceScore:     reply.EleganceScore,
		IntellectualDepth: reply.IntellectualDepth,
		KeyInsights:       reply.KeyInsights,
	}, nil
}
