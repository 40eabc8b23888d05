package recognize

import "context"

// Exports for testing. These allow black-box tests to exercise internals
// without widening the public API.

// CheckConnectivityWith runs the connectivity probe with an injected client.
func CheckConnectivityWith(ctx context.Context, client httpDoer) error {
	return checkConnectivity(ctx, client)
}
