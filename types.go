package deepthink

import (
	"time"
)

// State identifies where a run is in its lifecycle.
type State string

// Run lifecycle states. Completed, Failed, and Cancelled are terminal.
const (
	StatePlanning         State = "planning"
	StateResearching      State = "researching"
	StateThinking         State = "thinking"
	StateThinkingExpanded State = "thinking_expanded"
	StateCritiquing       State = "critiquing"
	StateRefining         State = "refining"
	StateMetaRefining     State = "meta_refining"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Stage identifies which agent an error or event belongs to.
type Stage string

// Pipeline stages, in execution order.
const (
	StagePlanner     Stage = "planner"
	StageResearcher  Stage = "researcher"
	StageThinker     Stage = "thinker"
	StageCritic      Stage = "critic"
	StageRefiner     Stage = "refiner"
	StageMetaRefiner Stage = "meta_refiner"
	StageGateway     Stage = "gateway"
)

// Plan is the planner's analysis of a query.
type Plan struct {
	Task            string   `json:"task"`
	ReasoningType   string   `json:"reasoning_type"`
	KeyAspects      []string `json:"key_aspects"`
	ComplexityLevel string   `json:"complexity_level"`
	SuccessCriteria []string `json:"success_criteria"`
	NeedsResearch   bool     `json:"needs_research"`
	ResearchQueries []string `json:"research_queries,omitempty"`
	// PathCount is the planner's suggested first-round size. The
	// coordinator clamps it to the configured bounds.
	PathCount int `json:"path_count"`
}

// CandidateStatus records how a reasoning path ended.
type CandidateStatus string

const (
	CandidateSucceeded CandidateStatus = "succeeded"
	CandidateFailed    CandidateStatus = "failed"
	CandidateTimedOut  CandidateStatus = "timed_out"
)

// Candidate is one reasoning path's result. Failed paths keep their slot
// so indices stay stable across the round.
type Candidate struct {
	PathIndex       int             `json:"path_index"`
	Seed            int64           `json:"seed"`
	Approach        string          `json:"approach,omitempty"`
	Thoughts        string          `json:"thoughts,omitempty"`
	Answer          string          `json:"answer,omitempty"`
	Confidence      string          `json:"confidence,omitempty"`
	PotentialIssues []string        `json:"potential_issues,omitempty"`
	Status          CandidateStatus `json:"status"`
	ErrorText       string          `json:"error,omitempty"`
	Elapsed         time.Duration   `json:"elapsed_ns"`

	// Err is the raw failure for in-process classification. It does not
	// survive serialization; ErrorText does.
	Err error `json:"-"`
}

// Scores holds the critic's rubric dimensions, each on a 0-10 scale.
type Scores struct {
	Correctness  float64 `json:"correctness"`
	Completeness float64 `json:"completeness"`
	Originality  float64 `json:"originality"`
	Evidence     float64 `json:"evidence"`
	Clarity      float64 `json:"clarity"`
}

// Total returns the aggregate used for ranking: the mean of all
// dimensions, still on the 0-10 scale.
func (s Scores) Total() float64 {
	return (s.Correctness + s.Completeness + s.Originality + s.Evidence + s.Clarity) / 5
}

// Evaluation is the critic's verdict on one candidate.
type Evaluation struct {
	PathIndex  int      `json:"path_index"`
	Scores     Scores   `json:"scores"`
	Total      float64  `json:"total"`
	Rank       int      `json:"rank"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

// RefinementResult is the refiner's synthesis of the top candidates.
type RefinementResult struct {
	Answer            string   `json:"answer"`
	SourcePaths       []int    `json:"source_paths"`
	Confidence        string   `json:"confidence,omitempty"`
	SynthesisApproach string   `json:"synthesis_approach,omitempty"`
	ImprovementsMade  []string `json:"improvements_made,omitempty"`
}

// MetaRefinementResult is the optional final polish pass.
type MetaRefinementResult struct {
	Answer            string   `json:"answer"`
	SynthesisType     string   `json:"synthesis_type,omitempty"`
	EleganceScore     float64  `json:"elegance_score,omitempty"`
	IntellectualDepth string   `json:"intellectual_depth,omitempty"`
	KeyInsights       []string `json:"key_insights,omitempty"`
}

// Finding is one research result handed to the thinkers.
type Finding struct {
	Query   string `json:"query"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content"`
}

// ResearchFindings aggregates the researcher's output for a run.
type ResearchFindings struct {
	Summary  string    `json:"summary,omitempty"`
	Findings []Finding `json:"findings,omitempty"`
	// Degraded is set when the search tool failed and the run continued
	// without external evidence.
	Degraded bool `json:"degraded,omitempty"`
}

// RunMetadata carries accounting details alongside the final answer.
type RunMetadata struct {
	RunID          string        `json:"run_id"`
	Query          string        `json:"query"`
	State          State         `json:"state"`
	PathsRequested int           `json:"paths_requested"`
	PathsConsumed  int           `json:"paths_consumed"`
	BudgetExpanded bool          `json:"budget_expanded"`
	InputTokens    int           `json:"input_tokens"`
	OutputTokens   int           `json:"output_tokens"`
	GatewayCalls   int           `json:"gateway_calls"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}

// RunOutcome is everything a completed run produced.
type RunOutcome struct {
	Answer      string                `json:"answer"`
	Plan        *Plan                 `json:"plan,omitempty"`
	Research    *ResearchFindings     `json:"research,omitempty"`
	Candidates  []Candidate           `json:"candidates"`
	Evaluations []Evaluation          `json:"evaluations"`
	Refinement  *RefinementResult     `json:"refinement,omitempty"`
	MetaRefine  *MetaRefinementResult `json:"meta_refinement,omitempty"`
	// Warnings records degradations that did not fail the run, such as a
	// meta-refinement failure falling back to the refined answer.
	Warnings []string    `json:"warnings,omitempty"`
	Metadata RunMetadata `json:"metadata"`
}
