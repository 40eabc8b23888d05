package apierr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mhjang/speech2text/internal/apierr"
)

// fastPolicy keeps backoff delays negligible so tests stay quick while
// still exercising the wait path.
func fastPolicy(attempts int) apierr.Policy {
	return apierr.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := apierr.Do(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "ok", nil
	}, apierr.Retryable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := apierr.Do(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", apierr.ErrRateLimit
		}
		return "recovered", nil
	}, apierr.Retryable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q, want %q", got, "recovered")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	_, err := apierr.Do(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		return "", apierr.ErrAuthFailed
	}, apierr.Retryable)
	if !errors.Is(err, apierr.ErrAuthFailed) {
		t.Fatalf("error = %v, want ErrAuthFailed", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := apierr.Do(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "", apierr.ErrTimeout
	}, apierr.Retryable)
	if !errors.Is(err, apierr.ErrTimeout) {
		t.Fatalf("error = %v, want wrapped ErrTimeout", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoObservesCancellationBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := apierr.Do(ctx, apierr.Policy{MaxAttempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute},
		func() (string, error) {
			calls++
			cancel() // cancel while "in flight"; the backoff wait must notice
			return "", apierr.ErrRateLimit
		}, apierr.Retryable)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestAttemptStateProgression(t *testing.T) {
	attempt := fastPolicy(2).Start()
	if !attempt.More() {
		t.Fatal("expected first attempt to be allowed")
	}
	attempt.Record()
	if !attempt.More() {
		t.Fatal("expected second attempt to be allowed")
	}
	attempt.Record()
	if attempt.More() {
		t.Error("expected no attempts left after exhausting policy")
	}
	if attempt.Count() != 2 {
		t.Errorf("Count() = %d, want 2", attempt.Count())
	}
}

func TestPolicyNormalization(t *testing.T) {
	// A zero policy still yields exactly one attempt.
	calls := 0
	_, err := apierr.Do(context.Background(), apierr.Policy{}, func() (string, error) {
		calls++
		return "", apierr.ErrTimeout
	}, apierr.Retryable)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", apierr.ErrRateLimit, true},
		{"timeout", apierr.ErrTimeout, true},
		{"wrapped timeout", errors.Join(errors.New("call failed"), apierr.ErrTimeout), true},
		{"auth", apierr.ErrAuthFailed, false},
		{"quota", apierr.ErrQuotaExceeded, false},
		{"bad request", apierr.ErrBadRequest, false},
		{"network unavailable", apierr.ErrNetworkUnavailable, true},
		{"wrapped network failure", fmt.Errorf("dial tcp 10.0.0.1:443: %w", apierr.ErrNetworkUnavailable), true},
		{"unclassified", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apierr.Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
