package mock

import (
	"context"

	"github.com/fwojciec/listgrab/scrape"
)

// Scraper is a mock implementation of chi.Scraper.
type Scraper struct {
	ScrapeFn func(ctx context.Context, url string, opts scrape.Options) (*scrape.Result, error)
}

func (s *Scraper) Scrape(ctx context.Context, url string, opts scrape.Options) (*scrape.Result, error) {
	return s.ScrapeFn(ctx, url, opts)
}
