package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/listgrab"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 15 * time.Second

// DefaultDelay is the default pause before each request.
const DefaultDelay = 1 * time.Second

// DefaultUserAgent identifies requests as a desktop browser.
// Listing sites commonly reject default client identifiers.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/141.0.0.0 Safari/537.36"

// Option configures a Fetcher or ImageRetriever.
type Option func(*client)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (15s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithDelay sets the fixed pause slept before every request.
// Defaults to DefaultDelay (1s). Zero disables the pause.
func WithDelay(d time.Duration) Option {
	return func(c *client) {
		c.delay = d
	}
}

// WithUserAgent sets the User-Agent header.
// Defaults to DefaultUserAgent if not specified.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets the underlying http.Client. Its Timeout is overridden
// by WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

// client issues throttled GET requests with browser-like headers.
// It is shared by Fetcher and ImageRetriever so both follow the same
// timeout and pause policy.
type client struct {
	http      *http.Client
	timeout   time.Duration
	delay     time.Duration
	userAgent string
}

func newClient(opts ...Option) *client {
	c := &client{
		timeout:   DefaultFetchTimeout,
		delay:     DefaultDelay,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := &http.Client{}
	if c.http != nil {
		clone := *c.http
		hc = &clone
	}
	hc.Timeout = c.timeout
	c.http = hc

	return c
}

// get pauses for the configured delay and then issues a GET request.
// The caller must close the response body.
func (c *client) get(ctx context.Context, url, accept string) (*http.Response, error) {
	if err := pause(ctx, c.delay); err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.ENETWORK, "request to %s canceled: %v", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.EINVALIDURL, "invalid URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(url, err)
	}
	return resp, nil
}

// pause blocks for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func networkError(url string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return listgrab.WrapErrorf(err, listgrab.ENETWORK, "request to %s canceled", url)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return listgrab.WrapErrorf(err, listgrab.ENETWORK, "request to %s timed out", url)
	default:
		return listgrab.WrapErrorf(err, listgrab.ENETWORK, "connection error for %s: %v", url, err)
	}
}

// statusError classifies a non-2xx response. what names the requested
// resource in the message, e.g. "listing" or "image".
func statusError(resp *http.Response, what, url string) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return listgrab.StatusErrorf(code, "%s not found (404) at %s; it may have been removed", what, url)
	case code == http.StatusForbidden:
		return listgrab.StatusErrorf(code, "access forbidden (403) at %s; the site may be rate limiting", url)
	case code == http.StatusTooManyRequests:
		return listgrab.StatusErrorf(code, "too many requests (429) at %s; slow down and try again later", url)
	case code >= 500:
		return listgrab.StatusErrorf(code, "server error (%d) at %s; try again later", code, url)
	default:
		return listgrab.StatusErrorf(code, "HTTP %d for %s", code, url)
	}
}
