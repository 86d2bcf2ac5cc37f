package listgrab

import (
	"context"
	"net/url"
	"strings"
)

// Page is the raw result of fetching a listing URL.
type Page struct {
	// URL is the final URL after redirects.
	URL string

	StatusCode  int
	ContentType string

	// Body is the page markup decoded to UTF-8.
	Body string
}

// Fetcher retrieves listing pages.
type Fetcher interface {
	// Fetch issues a single request for the URL and returns the page.
	// Fails with EINVALIDURL, ENETWORK or EHTTPSTATUS.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*Page, error)

	// Close releases resources held by the fetcher.
	Close() error
}

// ParseURL validates that raw is an absolute http or https URL.
// Returns EINVALIDURL otherwise.
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, Errorf(EINVALIDURL, "URL must be a non-empty string")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, WrapErrorf(err, EINVALIDURL, "invalid URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, Errorf(EINVALIDURL, "invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, Errorf(EINVALIDURL, "invalid URL %q: missing host", raw)
	}
	return u, nil
}
