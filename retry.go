package deepthink

import (
	"math"
	"math/rand"
	"time"
)

// BackoffType selects the delay growth curve between attempts.
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffLinear      BackoffType = "linear"
	BackoffConstant    BackoffType = "constant"
)

// BackoffConfig shapes the delay between retry attempts.
type BackoffConfig struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Multiplier grows the delay each attempt (exponential only).
	Multiplier float64
	// Max caps the computed delay before jitter.
	Max time.Duration
	// Jitter is the random fraction (0-1) added or subtracted from the
	// computed delay to avoid thundering herds.
	Jitter float64
	// Type selects the growth curve. Empty means exponential.
	Type BackoffType
}

// RetryPolicy bounds how the gateway retries failed calls.
type RetryPolicy struct {
	// MaxAttempts is the total attempt count including the first call.
	MaxAttempts int
	// Backoff shapes the wait between attempts.
	Backoff BackoffConfig
	// RetryOn lists the error classes worth retrying. Everything else
	// fails immediately.
	RetryOn []ErrorClass
}

// DefaultRetryPolicy retries rate-limit and availability failures up to
// three attempts with exponential backoff. Timeouts are not retried; the
// per-call budget is already spent.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			Initial:    500 * time.Millisecond,
			Multiplier: 2.0,
			Max:        8 * time.Second,
			Jitter:     0.2,
			Type:       BackoffExponential,
		},
		RetryOn: []ErrorClass{ClassRateLimited, ClassUnavailable},
	}
}

// ShouldRetry reports whether another attempt is allowed for this error.
// attempt is 1-based (the attempt that just failed).
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	class := ClassifyError(err)
	for _, c := range p.RetryOn {
		if c == class {
			return true
		}
	}
	return false
}

// Delay returns the wait before the given 1-based retry attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	b := p.Backoff
	if b.Initial <= 0 {
		b.Initial = 500 * time.Millisecond
	}

	var delay time.Duration
	switch b.Type {
	case BackoffLinear:
		delay = time.Duration(attempt) * b.Initial
	case BackoffConstant:
		delay = b.Initial
	default:
		mult := b.Multiplier
		if mult <= 0 {
			mult = 2.0
		}
		delay = time.Duration(float64(b.Initial) * math.Pow(mult, float64(attempt-1)))
	}

	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}

	if b.Jitter > 0 {
		// Random offset in [-jitter, +jitter] of the computed delay.
		offset := (rand.Float64()*2 - 1) * b.Jitter * float64(delay)
		delay += time.Duration(offset)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
