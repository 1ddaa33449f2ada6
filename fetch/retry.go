package fetch

import (
	"context"
	"time"

	"github.com/minute-repeater/restocked"
)

// FetchFunc is the signature for a single fetch attempt.
type FetchFunc func(ctx context.Context, url string) (*restocked.FetchResult, error)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// Retryable reports whether a fetch error is worth another attempt.
// Timeouts and transport faults are transient; a missing page or a bot
// challenge will not improve by asking again the same way.
func Retryable(err error) bool {
	switch restocked.ErrorCode(err) {
	case restocked.ETIMEOUT, restocked.ETRANSPORT:
		return true
	}
	return false
}

// DoWithRetryDelays attempts a fetch with bounded exponential backoff.
// One initial attempt plus one retry per delay; non-retryable errors
// surface immediately.
func DoWithRetryDelays(ctx context.Context, url string, fetch FetchFunc, delays []time.Duration) (*restocked.FetchResult, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fetch(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Retryable(err) || attempt >= maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, restocked.Errorf(restocked.ETIMEOUT, "fetch %s canceled during backoff", url)
		case <-time.After(delays[attempt]):
		}
	}

	return nil, lastErr
}
