package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	providerErrors "support-relay/internal/domain/errors"
	"support-relay/internal/domain/retry"
)

func TestPolicy_CalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		policy   retry.Policy
		retry    int
		expected time.Duration
	}{
		{
			name:     "fixed backoff",
			policy:   retry.Policy{BackoffStrategy: retry.BackoffFixed, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			retry:    4,
			expected: 100 * time.Millisecond,
		},
		{
			name:     "linear backoff",
			policy:   retry.Policy{BackoffStrategy: retry.BackoffLinear, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			retry:    3,
			expected: 300 * time.Millisecond,
		},
		{
			name:     "exponential backoff",
			policy:   retry.Policy{BackoffStrategy: retry.BackoffExponential, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second},
			retry:    3,
			expected: 400 * time.Millisecond,
		},
		{
			name:     "max delay cap",
			policy:   retry.Policy{BackoffStrategy: retry.BackoffExponential, InitialDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond},
			retry:    5,
			expected: 250 * time.Millisecond,
		},
		{
			name:     "attempt zero",
			policy:   retry.DefaultPolicy(),
			retry:    0,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.CalculateDelay(tt.retry); got != tt.expected {
				t.Errorf("CalculateDelay(%d) = %v, want %v", tt.retry, got, tt.expected)
			}
		})
	}
}

func TestPolicy_CalculateDelay_Jitter(t *testing.T) {
	policy := retry.Policy{BackoffStrategy: retry.BackoffFixed, InitialDelay: 100 * time.Millisecond, JitterFactor: 0.5}
	for i := 0; i < 50; i++ {
		d := policy.CalculateDelay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("delay %v outside jitter window", d)
		}
	}
}

func TestPolicy_MaxDuration(t *testing.T) {
	tests := []struct {
		name       string
		policy     retry.Policy
		perAttempt time.Duration
		expected   time.Duration
	}{
		{
			name:       "default policy with jitter",
			policy:     retry.DefaultPolicy(),
			perAttempt: 20 * time.Second,
			expected:   60*time.Second + 1200*time.Millisecond + 2400*time.Millisecond,
		},
		{
			name:       "single attempt",
			policy:     retry.NoRetryPolicy(),
			perAttempt: 15 * time.Second,
			expected:   15 * time.Second,
		},
		{
			name:       "capped delays",
			policy:     retry.Policy{MaxAttempts: 4, InitialDelay: time.Second, MaxDelay: 2 * time.Second, BackoffStrategy: retry.BackoffExponential},
			perAttempt: time.Second,
			expected:   4*time.Second + time.Second + 2*time.Second + 2*time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.MaxDuration(tt.perAttempt); got != tt.expected {
				t.Errorf("MaxDuration(%v) = %v, want %v", tt.perAttempt, got, tt.expected)
			}
		})
	}
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, InitialDelay: time.Millisecond, BackoffStrategy: retry.BackoffFixed}
}

func TestExecute_RetriesTransientFailures(t *testing.T) {
	calls := 0
	retries := 0
	result, err := retry.Execute(context.Background(), fastPolicy(3),
		func(int, error, time.Duration) { retries++ },
		func(ctx context.Context, attempt int) (string, error) {
			calls++
			if attempt < 2 {
				return "", providerErrors.NewProviderError("test", providerErrors.CategoryUnavailable, "down")
			}
			return "ok", nil
		})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || calls != 3 || retries != 2 {
		t.Errorf("result=%q calls=%d retries=%d", result, calls, retries)
	}
}

func TestExecute_StopsOnTerminalFailure(t *testing.T) {
	calls := 0
	terminal := providerErrors.NewProviderError("test", providerErrors.CategoryInvalidDestination, "bad number")
	_, err := retry.Execute(context.Background(), fastPolicy(3), nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, terminal
	})

	if !errors.Is(err, terminal) {
		t.Errorf("expected terminal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := retry.Execute(context.Background(), fastPolicy(3), nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, providerErrors.NewProviderError("test", providerErrors.CategoryRateLimited, "slow down")
	})

	if providerErrors.CategoryOf(err) != providerErrors.CategoryRateLimited {
		t.Errorf("unexpected error %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecute_PlainErrorsAreNotRetried(t *testing.T) {
	calls := 0
	_, _ = retry.Execute(context.Background(), fastPolicy(5), nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errors.New("plain")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retry.Execute(ctx, fastPolicy(3), nil, func(ctx context.Context, attempt int) (int, error) {
		t.Fatal("fn must not run on a cancelled context")
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
