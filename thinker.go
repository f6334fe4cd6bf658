package deepthink

import (
	"context"
	"fmt"
	"strings"
)

// Thinker generates one independent reasoning path.
type Thinker struct {
	gw  caller
	cfg Config
}

// NewThinker creates a thinker using the given gateway.
func NewThinker(gw caller, cfg Config) *Thinker {
	return &Thinker{gw: gw, cfg: cfg}
}

// thinkerReply is the raw shape the model returns.
type thinkerReply struct {
	Approach        string   `json:"approach"`
	Thoughts        string   `json:"thoughts"`
	Answer          string   `json:"answer"`
	Confidence      string   `json:"confidence"`
	PotentialIssues []string `json:"potential_issues"`
}

// Think runs one reasoning path. pathIndex and total give the path its
// identity in the prompt; seed keeps the sampling distinct per path.
func (t *Thinker) Think(ctx context.Context, runID, query string, plan *Plan, research *ResearchFindings, pathIndex, total int, seed int64) (*Candidate, error) {
	prompt := fmt.Sprintf(thinkerPromptTmpl,
		pathIndex+1, total,
		plan.Task,
		plan.ReasoningType,
		strings.Join(plan.KeyAspects, "; "),
		formatFindings(research),
		query,
	)

	var reply thinkerReply
	err := invokeJSON(ctx, t.gw, runID, prompt, GenParams{
		Temperature: t.cfg.ThinkerTemp,
		MaxTokens:   t.cfg.MaxOutputTokens,
		Seed:        &seed,
	}, &reply)
	if err != nil {
		return nil, NewStageError(StageThinker, runID, err)
	}
	if reply.Answer == "" {
		return nil, NewStageError(StageThinker, runID, fmt.Errorf("%w: empty answer", ErrMalformedOutput))
	}

	return &Candidate{
		PathIndex:       pathIndex,
		Seed:            seed,
		Approach:        reply.Approach,
		Thoughts:        reply.Thoughts,
		Answer:          reply.Answer,
		Confidence:      normalizeConfidence(reply.Confidence),
		PotentialIssues: reply.PotentialIssues,
		Status:          CandidateSucceeded,
	}, nil
}

// normalizeConfidence folds model variations onto high/medium/low.
func normalizeConfidence(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "very high":
		return "high"
	case "low", "very low":
		return "low"
	default:
		return "medium"
	}
}
