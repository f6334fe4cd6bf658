package deepthink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ThinkFunc produces one candidate for a reasoning path. Implemented by
// the thinker agent; abstracted so the executor can be tested without a
// backend.
type ThinkFunc func(ctx context.Context, pathIndex int, seed int64) (*Candidate, error)

// Executor fans reasoning paths out under a concurrency ceiling and
// collects one Candidate per path, slot-stable. Individual path failure
// never fails the round.
type Executor struct {
	maxConcurrency int
	logger         *slog.Logger
}

// NewExecutor creates an executor. maxConcurrency <= 0 means no ceiling
// beyond the round size.
func NewExecutor(maxConcurrency int) *Executor {
	return &Executor{
		maxConcurrency: maxConcurrency,
		logger:         slog.With("component", "executor"),
	}
}

// RunRound launches one thinking round. Path indices run from firstIndex
// so a second round continues the numbering of the first. The returned
// slice always has count entries in path order; failed or timed-out
// paths keep their slot with status and error recorded.
//
// perTaskTimeout bounds each task's total wall time on top of whatever
// deadlines the task's own calls carry; a task that overruns it is
// finalized as timed out and abandoned. Zero means no per-task bound.
func (e *Executor) RunRound(ctx context.Context, runID string, firstIndex, count int, baseSeed int64, perTaskTimeout time.Duration, think ThinkFunc) []Candidate {
	results := make([]Candidate, count)

	limit := int64(count)
	if e.maxConcurrency > 0 && int64(e.maxConcurrency) < limit {
		limit = int64(e.maxConcurrency)
	}
	sem := semaphore.NewWeighted(limit)

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		pathIndex := firstIndex + i
		seed := baseSeed + int64(pathIndex)
		slot := i

		if err := sem.Acquire(ctx, 1); err != nil {
			// Run cancelled while queueing: mark the remaining slots
			// without launching them.
			results[slot] = failedCandidate(pathIndex, seed, fmt.Errorf("%w: %w", ErrRunCancelled, err), 0)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			taskCtx := ctx
			var cancel context.CancelFunc
			if perTaskTimeout > 0 {
				taskCtx, cancel = context.WithTimeout(ctx, perTaskTimeout)
				defer cancel()
			}

			start := time.Now()
			done := make(chan struct{})
			var cand *Candidate
			var thinkErr error
			go func() {
				cand, thinkErr = think(taskCtx, pathIndex, seed)
				close(done)
			}()

			select {
			case <-done:
			case <-taskCtx.Done():
				// The task overran its budget or the run was cancelled.
				// Finalize the slot now; the stalled goroutine is
				// abandoned and exits on its own.
				elapsed := time.Since(start)
				err := taskCtx.Err()
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					err = fmt.Errorf("%w: task exceeded %v", ErrTimeout, perTaskTimeout)
				} else {
					err = fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
				}
				e.logger.Warn("reasoning path abandoned",
					"run_id", runID, "path", pathIndex, "elapsed", elapsed, "error", err)
				results[slot] = failedCandidate(pathIndex, seed, err, elapsed)
				return
			}

			elapsed := time.Since(start)
			if thinkErr != nil {
				e.logger.Warn("reasoning path failed",
					"run_id", runID, "path", pathIndex,
					"class", ClassifyError(thinkErr).String(), "elapsed", elapsed, "error", thinkErr)
				results[slot] = failedCandidate(pathIndex, seed, thinkErr, elapsed)
				return
			}
			cand.PathIndex = pathIndex
			cand.Seed = seed
			cand.Elapsed = elapsed
			results[slot] = *cand
		}()
	}
	wg.Wait()

	return results
}

func failedCandidate(pathIndex int, seed int64, err error, elapsed time.Duration) Candidate {
	status := CandidateFailed
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		status = CandidateTimedOut
	}
	return Candidate{
		PathIndex: pathIndex,
		Seed:      seed,
		Status:    status,
		Err:       err,
		ErrorText: err.Error(),
		Elapsed:   elapsed,
	}
}

// CountSucceeded returns how many candidates in the round succeeded.
func CountSucceeded(candidates []Candidate) int {
	n := 0
	for _, c := range candidates {
		if c.Status == CandidateSucceeded {
			n++
		}
	}
	return n
}
