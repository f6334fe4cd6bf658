package serve

import (
	"time"

	deepthink "github.com/everydev1618/godeepthink"
)

// RunRecord is a persisted run summary.
type RunRecord struct {
	ID         string          `json:"id"`
	Query      string          `json:"query"`
	State      deepthink.State `json:"state"`
	Answer     string          `json:"answer,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`

	// Outcome is the full serialized RunOutcome, populated once the run
	// finishes.
	Outcome *deepthink.RunOutcome `json:"outcome,omitempty"`
}

// ThinkRequest is the POST /api/deepthink body.
type ThinkRequest struct {
	Query      string `json:"query"`
	NPaths     int    `json:"n_paths,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
	TimeoutSec int    `json:"timeout_sec,omitempty"`
	MetaRefine *bool  `json:"meta_refine,omitempty"`
}

// ThinkResponse is the POST /api/deepthink reply.
type ThinkResponse struct {
	RunID    string                `json:"run_id"`
	State    deepthink.State       `json:"state"`
	Answer   string                `json:"answer,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
	Outcome  *deepthink.RunOutcome `json:"outcome,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// errorResponse is the generic API error body.
type errorResponse struct {
	Error string `json:"error"`
}

// healthResponse is the GET /api/health reply. Components map component
// name to "ok" or the probe failure.
type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
