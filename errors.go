package deepthink

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for pipeline and gateway failures. Wrap with
// fmt.Errorf("%w: ...") to add context while keeping errors.Is matching.
var (
	// ErrRateLimited indicates the remote endpoint rejected a call with a
	// rate-limit response. Transient: the gateway retries it.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the remote endpoint returned a server
	// error or the connection failed. Transient: the gateway retries it.
	ErrUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates a single call exceeded its per-call deadline.
	// Not retried: the time is already spent.
	ErrTimeout = errors.New("call timed out")

	// ErrInvalidRequest indicates the request itself was rejected.
	// Permanent: retrying cannot help.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrContentBlocked indicates the endpoint refused to produce output
	// for the given content. Permanent.
	ErrContentBlocked = errors.New("content blocked")

	// ErrMalformedOutput indicates a stage agent could not parse the
	// model's reply into its expected structure.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrInsufficientCandidates indicates the thinking stage produced no
	// usable candidate at all.
	ErrInsufficientCandidates = errors.New("no reasoning path produced a usable candidate")

	// ErrRunCancelled indicates the run was cancelled, either by its
	// caller or by the global run timeout.
	ErrRunCancelled = errors.New("run cancelled")

	// ErrBudgetExhausted indicates a path allocation request exceeded the
	// run's hard ceiling.
	ErrBudgetExhausted = errors.New("path budget exhausted")
)

// ErrorClass partitions gateway failures by retry behavior.
type ErrorClass int

const (
	// ClassUnknown covers errors that fit no other class.
	ClassUnknown ErrorClass = iota
	// ClassRateLimited covers rate-limit rejections.
	ClassRateLimited
	// ClassUnavailable covers server errors and connection failures.
	ClassUnavailable
	// ClassTimeout covers per-call deadline expiry.
	ClassTimeout
	// ClassInvalid covers permanently rejected requests.
	ClassInvalid
	// ClassBlocked covers content refusals.
	ClassBlocked
	// ClassCancelled covers caller cancellation.
	ClassCancelled
)

// String returns the class name used in logs and events.
func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassUnavailable:
		return "unavailable"
	case ClassTimeout:
		return "timeout"
	case ClassInvalid:
		return "invalid"
	case ClassBlocked:
		return "blocked"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ClassifyError maps an error to its ErrorClass. Context deadline expiry
// classifies as timeout; context cancellation as cancelled.
func ClassifyError(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, ErrUnavailable):
		return ClassUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, ErrInvalidRequest):
		return ClassInvalid
	case errors.Is(err, ErrContentBlocked):
		return ClassBlocked
	case errors.Is(err, ErrRunCancelled), errors.Is(err, context.Canceled):
		return ClassCancelled
	default:
		return ClassUnknown
	}
}

// StageError wraps a failure with the stage and run it occurred in.
type StageError struct {
	Stage Stage
	RunID string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("run %s (%s): %v", e.RunID, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with stage and run context.
func NewStageError(stage Stage, runID string, err error) *StageError {
	return &StageError{Stage: stage, RunID: runID, Err: err}
}

// ValidationError reports a rejected configuration or request field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is lets ValidationError match ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
