package deepthink

import (
	"fmt"
	"log/slog"
	"sync"
)

// BudgetState is a snapshot of a run's path accounting.
type BudgetState struct {
	MaxPaths  int  `json:"max_paths"`
	Consumed  int  `json:"consumed"`
	Expanded  bool `json:"expanded"`
	Remaining int  `json:"remaining"`
}

// BudgetDecision is the expansion verdict after the first round.
type BudgetDecision struct {
	// Expand is true when a second round is worth running.
	Expand bool `json:"expand"`
	// ExtraPaths is how many additional paths to launch. Zero when
	// Expand is false.
	ExtraPaths int `json:"extra_paths"`
	// MeanScore is the first-round quality signal that drove the
	// decision.
	MeanScore float64 `json:"mean_score"`
	// Reason explains the verdict for logs and events.
	Reason string `json:"reason"`
}

// BudgetManager enforces a run's hard path ceiling and decides, at most
// once, whether first-round quality justifies a second round. Safe for
// concurrent use; each run gets its own manager.
type BudgetManager struct {
	mu        sync.Mutex
	maxPaths  int
	threshold float64
	consumed  int
	expanded  bool
	logger    *slog.Logger
}

// NewBudgetManager creates a manager with the given ceiling and quality
// threshold.
func NewBudgetManager(maxPaths int, threshold float64) *BudgetManager {
	return &BudgetManager{
		maxPaths:  maxPaths,
		threshold: threshold,
		logger:    slog.With("component", "budget"),
	}
}

// Charge reserves n paths against the ceiling. It either reserves all n
// or fails with ErrBudgetExhausted.
func (b *BudgetManager) Charge(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 {
		return &ValidationError{Field: "paths", Message: fmt.Sprintf("charge must be positive, got %d", n)}
	}
	if b.consumed+n > b.maxPaths {
		return fmt.Errorf("%w: requested %d, %d of %d remaining", ErrBudgetExhausted, n, b.maxPaths-b.consumed, b.maxPaths)
	}
	b.consumed += n
	return nil
}

// Decide computes the expansion verdict from first-round scores without
// mutating state, so calling it twice with the same inputs gives the
// same answer. scores are candidate totals on the 0-10 scale;
// firstRoundSize is how many paths round one launched.
func (b *BudgetManager) Decide(firstRoundSize int, scores []float64) BudgetDecision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.expanded {
		return BudgetDecision{Reason: "already expanded once"}
	}
	if len(scores) == 0 {
		return BudgetDecision{Reason: "no scored candidates"}
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	if mean >= b.threshold {
		return BudgetDecision{
			MeanScore: mean,
			Reason:    fmt.Sprintf("mean score %.1f meets threshold %.1f", mean, b.threshold),
		}
	}

	remaining := b.maxPaths - b.consumed
	if remaining <= 0 {
		return BudgetDecision{
			MeanScore: mean,
			Reason:    fmt.Sprintf("mean score %.1f below threshold %.1f but budget exhausted", mean, b.threshold),
		}
	}

	extra := firstRoundSize
	if extra > remaining {
		extra = remaining
	}
	return BudgetDecision{
		Expand:     true,
		ExtraPaths: extra,
		MeanScore:  mean,
		Reason:     fmt.Sprintf("mean score %.1f below threshold %.1f, launching %d more paths", mean, b.threshold, extra),
	}
}

// Apply records an expansion decision: charges the extra paths and marks
// the run expanded so no further expansion can happen.
func (b *BudgetManager) Apply(d BudgetDecision) error {
	if !d.Expand {
		return nil
	}
	b.mu.Lock()
	if b.expanded {
		b.mu.Unlock()
		return fmt.Errorf("%w: expansion already applied", ErrBudgetExhausted)
	}
	if b.consumed+d.ExtraPaths > b.maxPaths {
		b.mu.Unlock()
		return fmt.Errorf("%w: requested %d, %d of %d remaining", ErrBudgetExhausted, d.ExtraPaths, b.maxPaths-b.consumed, b.maxPaths)
	}
	b.consumed += d.ExtraPaths
	b.expanded = true
	b.mu.Unlock()

	b.logger.Info("budget expanded", "extra_paths", d.ExtraPaths, "mean_score", d.MeanScore)
	return nil
}

// State returns a snapshot of the accounting.
func (b *BudgetManager) State() BudgetState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BudgetState{
		MaxPaths:  b.maxPaths,
		Consumed:  b.consumed,
		Expanded:  b.expanded,
		Remaining: b.maxPaths - b.consumed,
	}
}
