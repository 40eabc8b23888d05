// Package apierr provides shared error sentinels and retry infrastructure
// for remote recognition services. Backend-specific error types are
// classified into these sentinels at the adapter boundary.
//
// Backends wrap with fmt.Errorf("%s: %w", msg, sentinel); callers check
// with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for remote service interaction failures.
var (
	// ErrRateLimit indicates the service rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the account quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates service authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrNetworkUnavailable indicates no network connectivity to the service.
	// Transient for a single request (connections drop and come back); the
	// pre-run connectivity probe reports it once for the whole job.
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Retryable reports whether an error is transient and worth another attempt.
// Auth, quota, and bad-request errors require user action and are final.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNetworkUnavailable)
}
