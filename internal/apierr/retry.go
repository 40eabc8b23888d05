package apierr

import (
	"context"
	"fmt"
	"time"
)

// Default retry parameters for recognition calls.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Policy describes bounded retries with exponential backoff.
//
// Invalid values are normalized:
//   - MaxAttempts < 1 becomes 1 (single attempt, no retries)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
type Policy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // backoff cap
}

// DefaultPolicy returns the retry policy used for recognition calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// normalize ensures all Policy fields have valid values.
func (p *Policy) normalize() {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = p.BaseDelay
	}
}

// Attempt carries the explicit per-attempt retry state: how many attempts
// have run and what the next backoff delay is. Keeping this state out of
// the call loop makes the policy independently testable.
type Attempt struct {
	policy Policy
	n      int           // attempts completed
	delay  time.Duration // delay before the next attempt
}

// Start begins tracking attempts under the policy.
func (p Policy) Start() *Attempt {
	p.normalize()
	return &Attempt{policy: p, delay: p.BaseDelay}
}

// Count returns the number of attempts completed so far.
func (a *Attempt) Count() int { return a.n }

// More reports whether another attempt is allowed under the policy.
func (a *Attempt) More() bool { return a.n < a.policy.MaxAttempts }

// Record marks one attempt as completed.
func (a *Attempt) Record() { a.n++ }

// Wait blocks for the current backoff delay, then doubles it up to the cap.
// Returns the context error if ctx is done first, so cancellation is
// observed between retry attempts.
func (a *Attempt) Wait(ctx context.Context) error {
	timer := time.NewTimer(a.delay)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
	}
	a.delay = min(a.delay*2, a.policy.MaxDelay)
	return nil
}

// Do executes fn under the policy, retrying while retryable reports the
// error as transient. Returns the result of the last attempt.
func Do[T any](
	ctx context.Context,
	p Policy,
	fn func() (T, error),
	retryable func(error) bool,
) (T, error) {
	var zero T
	var lastErr error

	attempt := p.Start()
	for attempt.More() {
		if attempt.Count() > 0 {
			if err := attempt.Wait(ctx); err != nil {
				return zero, err
			}
		}

		result, err := fn()
		attempt.Record()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !retryable(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("gave up after %d attempts: %w", attempt.Count(), lastErr)
}
