package recognize

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mhjang/speech2text/internal/apierr"
)

// Connectivity probe configuration.
const (
	connectivityURL     = "http://www.google.com"
	connectivityTimeout = 3 * time.Second
)

// CheckConnectivity probes for internet access. It returns
// apierr.ErrNetworkUnavailable when the probe fails.
func CheckConnectivity(ctx context.Context) error {
	return checkConnectivity(ctx, &http.Client{Timeout: connectivityTimeout})
}

func checkConnectivity(ctx context.Context, client httpDoer) error {
	ctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, connectivityURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrNetworkUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrNetworkUnavailable, err)
	}
	_ = resp.Body.Close()
	return nil
}
