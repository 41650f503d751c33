// Package retry defines retry policies and backoff strategies for provider calls.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	providerErrors "support-relay/internal/domain/errors"
)

// Policy defines a retry strategy. MaxAttempts counts the first call.
type Policy struct {
	MaxAttempts     int           `json:"max_attempts"`
	InitialDelay    time.Duration `json:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	BackoffStrategy BackoffType   `json:"backoff_strategy"`
	JitterFactor    float64       `json:"jitter_factor"` // 0.0-1.0
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffLinear      BackoffType = "linear"
	BackoffExponential BackoffType = "exponential"
)

// DefaultPolicy returns the policy used for outbound delivery: 3 attempts, exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        10 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.2,
	}
}

// NoRetryPolicy returns a policy that never retries.
func NoRetryPolicy() Policy {
	return Policy{MaxAttempts: 1}
}

// CalculateDelay calculates the delay before the given retry (1-based).
func (p Policy) CalculateDelay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}

	delay := p.baseDelay(retry)
	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

func (p Policy) baseDelay(retry int) time.Duration {
	var delay time.Duration
	switch p.BackoffStrategy {
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(retry)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(retry-1)))
	default:
		delay = p.InitialDelay
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// MaxDuration is the longest Execute can run when every attempt takes perAttempt,
// counting the largest jittered delay between attempts.
func (p Policy) MaxDuration(perAttempt time.Duration) time.Duration {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	total := time.Duration(attempts) * perAttempt
	for retry := 1; retry < attempts; retry++ {
		delay := p.baseDelay(retry)
		if p.JitterFactor > 0 {
			delay += time.Duration(float64(delay) * p.JitterFactor)
		}
		total += delay
	}
	return total
}

// ShouldRetry reports whether another attempt may follow a failed attempt (0-based) with err.
// Only retryable provider errors are retried.
func (p Policy) ShouldRetry(attempt int, err error) bool {
	if attempt+1 >= p.MaxAttempts {
		return false
	}
	return providerErrors.IsRetryable(err)
}

// OnRetryFunc observes a failed attempt that is about to be retried.
type OnRetryFunc func(attempt int, err error, delay time.Duration)

// Execute runs fn until it succeeds, returns a non-retryable error, or attempts run out.
func Execute[T any](ctx context.Context, policy Policy, onRetry OnRetryFunc, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		default:
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !policy.ShouldRetry(attempt, err) {
			break
		}

		delay := policy.CalculateDelay(attempt + 1)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, lastErr
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}
