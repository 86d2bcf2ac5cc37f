// Package rod fetches listing pages through headless Chrome for sites that
// build their embedded data client-side.
package rod

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fwojciec/listgrab"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds navigation and load of a single page.
const DefaultFetchTimeout = 30 * time.Second

// DefaultDelay is the default pause before each navigation, matching the
// plain HTTP fetcher.
const DefaultDelay = 1 * time.Second

// Ensure Fetcher implements listgrab.Fetcher at compile time.
var _ listgrab.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered pages using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager   *BrowserManager
	timeout   time.Duration
	delay     time.Duration
	userAgent string
	maxPages  int64
	bin       string
	closed    atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the per-page timeout.
// Defaults to DefaultFetchTimeout if not specified.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithDelay sets the fixed pause slept before every navigation.
// Defaults to DefaultDelay. Zero disables the pause. The pause is not
// counted against the fetch timeout.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.delay = d
	}
}

// WithBrowserBinary launches the Chrome or Chromium binary at path instead
// of looking one up on the system. An empty path keeps the lookup.
func WithBrowserBinary(path string) Option {
	return func(f *Fetcher) {
		f.bin = path
	}
}

// WithUserAgent overrides the browser's User-Agent for every page.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithBrowserRecycling sets how many pages are loaded before the browser is
// restarted. Defaults to DefaultMaxPages.
func WithBrowserRecycling(maxPages int64) Option {
	return func(f *Fetcher) {
		f.maxPages = maxPages
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		delay:    DefaultDelay,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}

	managerOpts := []ManagerOption{WithMaxPages(f.maxPages)}
	if f.bin != "" {
		managerOpts = append(managerOpts, WithBrowserBin(f.bin))
	}

	manager, err := NewBrowserManager(managerOpts...)
	if err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.EINTERNAL, "starting browser: %v", err)
	}
	f.manager = manager

	return f, nil
}

// Fetch navigates to the URL and returns the rendered document. The status
// code is taken from the main document response; non-2xx statuses fail with
// EHTTPSTATUS as in the plain HTTP fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*listgrab.Page, error) {
	if f.closed.Load() {
		return nil, listgrab.Errorf(listgrab.EINVALID, "fetcher is closed")
	}

	u, err := listgrab.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	url := u.String()

	if err := ctx.Err(); err != nil {
		return nil, networkError(url, err)
	}
	if err := pause(ctx, f.delay); err != nil {
		return nil, networkError(url, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.EINTERNAL, "opening browser page: %v", err)
	}
	defer page.Close()
	defer f.manager.IncrementPageCount()

	page = page.Context(ctx)

	if f.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
			return nil, networkError(url, err)
		}
	}

	responses := make(chan *proto.NetworkResponse, 1)
	go page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		responses <- e.Response
		return true
	})()

	if err := page.Navigate(url); err != nil {
		return nil, networkError(url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, networkError(url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, networkError(url, err)
	}

	result := &listgrab.Page{URL: url, StatusCode: 200, Body: html}
	select {
	case resp := <-responses:
		result.StatusCode = resp.Status
		result.ContentType = resp.MIMEType
		if resp.URL != "" {
			result.URL = resp.URL
		}
	default:
	}

	if code := result.StatusCode; code < 200 || code > 299 {
		return nil, listgrab.StatusErrorf(code, "HTTP %d for %s", code, url)
	}

	return result, nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
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
	switch {
	case errors.Is(err, context.Canceled):
		return listgrab.WrapErrorf(err, listgrab.ENETWORK, "request to %s canceled", url)
	case errors.Is(err, context.DeadlineExceeded):
		return listgrab.WrapErrorf(err, listgrab.ENETWORK, "request to %s timed out", url)
	}

	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return listgrab.WrapErrorf(err, listgrab.ENETWORK, "connection error for %s: %s", url, navErr.Reason)
	}
	return listgrab.WrapErrorf(err, listgrab.ENETWORK, "browser error for %s: %v", url, err)
}
