package deepthink

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassUnknown},
		{"rate limited", ErrRateLimited, ClassRateLimited},
		{"wrapped rate limited", fmt.Errorf("%w: status 429", ErrRateLimited), ClassRateLimited},
		{"unavailable", ErrUnavailable, ClassUnavailable},
		{"timeout", ErrTimeout, ClassTimeout},
		{"deadline exceeded", context.DeadlineExceeded, ClassTimeout},
		{"invalid", ErrInvalidRequest, ClassInvalid},
		{"blocked", ErrContentBlocked, ClassBlocked},
		{"cancelled", ErrRunCancelled, ClassCancelled},
		{"context canceled", context.Canceled, ClassCancelled},
		{"unknown", errors.New("something else"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStageError(t *testing.T) {
	err := NewStageError(StageThinker, "abc12345", ErrRateLimited)

	want := "run abc12345 (thinker): rate limited"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("StageError should unwrap to ErrRateLimited")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatal("errors.As should find StageError")
	}
	if stageErr.Stage != StageThinker {
		t.Errorf("Stage = %v, want %v", stageErr.Stage, StageThinker)
	}
}

func TestStageErrorClassification(t *testing.T) {
	// Classification must see through stage wrapping.
	err := NewStageError(StageCritic, "run1", fmt.Errorf("%w: backend 503", ErrUnavailable))
	if got := ClassifyError(err); got != ClassUnavailable {
		t.Errorf("ClassifyError = %v, want %v", got, ClassUnavailable)
	}
}

func TestValidationErrorMatchesInvalidRequest(t *testing.T) {
	err := &ValidationError{Field: "n_paths", Message: "must be between 1 and 32, got 50"}

	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("ValidationError should match ErrInvalidRequest")
	}
	want := "invalid n_paths: must be between 1 and 32, got 50"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ClassRateLimited, "rate_limited"},
		{ClassUnavailable, "unavailable"},
		{ClassTimeout, "timeout"},
		{ClassInvalid, "invalid"},
		{ClassBlocked, "blocked"},
		{ClassCancelled, "cancelled"},
		{ClassUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}
