package deepthink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/everydev1618/godeepthink/llm"
)

// GenParams shapes one gateway call.
type GenParams struct {
	Temperature float64
	MaxTokens   int
	// JSON requests a structured reply from the backend.
	JSON bool
	// Seed makes sampling reproducible when set.
	Seed *int64
}

// Gateway is the single chokepoint for remote model calls. It owns the
// per-call timeout, error classification, and bounded retry; stage agents
// never talk to the backend directly.
type Gateway struct {
	backend llm.LLM
	model   string
	timeout time.Duration
	policy  RetryPolicy
	sink    EventSink
	logger  *slog.Logger

	calls        atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// NewGateway wraps a backend with retry and timeout handling.
func NewGateway(backend llm.LLM, model string, timeout time.Duration, policy RetryPolicy, sink EventSink) *Gateway {
	if sink == nil {
		sink = NopSink{}
	}
	return &Gateway{
		backend: backend,
		model:   model,
		timeout: timeout,
		policy:  policy,
		sink:    sink,
		logger:  slog.With("component", "gateway"),
	}
}

// Generate performs one logical call: it retries transient failures per
// the policy, applies the per-call timeout to each attempt, and waits
// out backoff delays unless ctx is cancelled first.
func (g *Gateway) Generate(ctx context.Context, runID, prompt string, params GenParams) (*llm.Response, error) {
	req := llm.Request{
		Model:           g.model,
		Prompt:          prompt,
		Temperature:     params.Temperature,
		MaxOutputTokens: params.MaxTokens,
		Seed:            params.Seed,
	}
	if params.JSON {
		req.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}

		start := time.Now()
		resp, err := g.generateOnce(ctx, req)
		latency := time.Since(start)
		g.calls.Add(1)

		data := map[string]any{
			"attempt":    attempt,
			"latency_ms": latency.Milliseconds(),
		}
		if err == nil {
			data["outcome"] = "ok"
		} else {
			data["outcome"] = ClassifyError(err).String()
			data["error"] = err.Error()
		}
		g.sink.Publish(Event{
			Type:      EventGatewayAttempt,
			RunID:     runID,
			Stage:     StageGateway,
			Timestamp: time.Now(),
			Data:      data,
		})

		if err == nil {
			g.inputTokens.Add(int64(resp.InputTokens))
			g.outputTokens.Add(int64(resp.OutputTokens))
			return resp, nil
		}
		lastErr = err

		class := ClassifyError(err)
		if !g.policy.ShouldRetry(err, attempt) {
			g.logger.Debug("call failed, not retrying",
				"run_id", runID, "attempt", attempt, "class", class.String(), "error", err)
			return nil, err
		}

		delay := g.policy.Delay(attempt)
		g.logger.Debug("call failed, retrying",
			"run_id", runID, "attempt", attempt, "class", class.String(), "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
		}
	}
	return nil, lastErr
}

// generateOnce runs a single attempt under the per-call timeout and
// classifies its failure.
func (g *Gateway) generateOnce(ctx context.Context, req llm.Request) (*llm.Response, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if g.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.backend.Generate(callCtx, req)
	if err == nil {
		return resp, nil
	}

	// Per-call deadline expiry while the parent is still live is a
	// timeout, not a cancellation.
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		case apiErr.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		case apiErr.StatusCode >= 400:
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, err
	}

	if errors.Is(err, llm.ErrBlocked) {
		return nil, fmt.Errorf("%w: %w", ErrContentBlocked, err)
	}
	if errors.Is(err, llm.ErrEmptyResponse) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	// Transport-level failures (connection refused, DNS) are worth a
	// retry.
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Ping performs one attempt against the backend, without retry. Meant
// for health probes; the caller supplies whatever deadline it wants.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.generateOnce(ctx, llm.Request{
		Model:           g.model,
		Prompt:          "Reply with the single word OK.",
		MaxOutputTokens: 8,
	})
	return err
}

// Usage returns cumulative call and token counts across all runs.
func (g *Gateway) Usage() (calls, inputTokens, outputTokens int64) {
	return g.calls.Load(), g.inputTokens.Load(), g.outputTokens.Load()
}
