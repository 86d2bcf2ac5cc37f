// Package http provides net/http implementations of listgrab.Fetcher and
// listgrab.ImageRetriever for server-rendered listing pages.
package http

import (
	"bytes"
	"context"
	"io"

	"github.com/fwojciec/listgrab"
	"golang.org/x/net/html/charset"
)

// MaxPageSize caps the size of a page body. Larger pages fail with ENETWORK
// rather than being truncated mid-document.
const MaxPageSize = 10 << 20

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

// Ensure Fetcher implements listgrab.Fetcher at compile time.
var _ listgrab.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves listing pages using plain HTTP requests.
// It does not execute JavaScript; see rod.Fetcher for rendered pages.
type Fetcher struct {
	client *client
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	return &Fetcher{client: newClient(opts...)}
}

// Fetch issues one GET request for the URL and returns the decoded page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*listgrab.Page, error) {
	u, err := listgrab.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	url := u.String()

	resp, err := f.client.get(ctx, url, acceptHTML)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp, "listing", url); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageSize+1))
	if err != nil {
		return nil, networkError(url, err)
	}
	if len(raw) > MaxPageSize {
		return nil, listgrab.Errorf(listgrab.ENETWORK, "page at %s exceeds %d bytes", url, MaxPageSize)
	}

	contentType := resp.Header.Get("Content-Type")
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.ENETWORK, "decoding %s: %v", url, err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.ENETWORK, "decoding %s: %v", url, err)
	}

	return &listgrab.Page{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        string(body),
	}, nil
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
