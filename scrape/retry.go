package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/listgrab"
)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second}
}

// Ensure RetryFetcher implements listgrab.Fetcher at compile time.
var _ listgrab.Fetcher = (*RetryFetcher)(nil)

// RetryFetcher retries network failures of the wrapped fetcher. One retry
// is made per entry in Delays, sleeping that long first. Status errors and
// invalid URLs are returned immediately.
type RetryFetcher struct {
	Next   listgrab.Fetcher
	Delays []time.Duration
	Logger *slog.Logger
}

// NewRetryFetcher wraps next with the given number of retries using
// DefaultRetryDelays, extended by doubling the last delay when needed.
func NewRetryFetcher(next listgrab.Fetcher, retries int, logger *slog.Logger) *RetryFetcher {
	delays := DefaultRetryDelays()
	for len(delays) < retries {
		delays = append(delays, delays[len(delays)-1]*2)
	}
	return &RetryFetcher{Next: next, Delays: delays[:max(retries, 0)], Logger: logger}
}

// Fetch calls the wrapped fetcher until it succeeds, fails with a
// non-network error or runs out of retries.
func (f *RetryFetcher) Fetch(ctx context.Context, url string) (*listgrab.Page, error) {
	maxAttempts := len(f.Delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		page, err := f.Next.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if listgrab.ErrorCode(err) != listgrab.ENETWORK || ctx.Err() != nil {
			return nil, err
		}
		if attempt >= maxAttempts-1 {
			break
		}

		if f.Logger != nil {
			f.Logger.Warn("retrying fetch", "url", url, "attempt", attempt+2, "err", err)
		}

		timer := time.NewTimer(f.Delays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// Close delegates to the wrapped fetcher.
func (f *RetryFetcher) Close() error {
	return f.Next.Close()
}
