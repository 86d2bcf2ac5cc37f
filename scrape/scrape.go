// Package scrape runs the single-listing pipeline: fetch the page, extract
// its embedded data, normalize it into a Listing and optionally download
// the primary image.
package scrape

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/listgrab"
)

// DefaultImageDir is the directory images are written to when none is given.
const DefaultImageDir = "downloaded_images"

// Scraper orchestrates one scrape. Fetcher, Extractor and Normalizer are
// required; Images is needed only when image download is requested.
type Scraper struct {
	Fetcher    listgrab.Fetcher
	Extractor  listgrab.Extractor
	Normalizer *listgrab.Normalizer
	Images     listgrab.ImageRetriever
	Logger     *slog.Logger
}

// Options controls a single scrape.
type Options struct {
	DownloadImage bool
	ImageDir      string
}

// Result holds the outcome of a scrape. ImageErr is set when the image
// download was attempted and failed; the listing is still valid.
type Result struct {
	Listing  listgrab.Listing
	Image    *listgrab.SavedImage
	ImageErr error
}

// Scrape runs the pipeline for rawURL. Fetch and extract failures abort
// and are returned unchanged. Image failures are reported in Result.
func (s *Scraper) Scrape(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	logger := s.logger()
	begin := time.Now()

	sourceURL := strings.TrimSpace(rawURL)
	if _, err := listgrab.ParseURL(sourceURL); err != nil {
		return nil, err
	}

	page, err := s.Fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetched listing page", "url", page.URL, "status", page.StatusCode, "bytes", len(page.Body))

	data, err := s.Extractor.Extract(page)
	if err != nil {
		return nil, err
	}
	logger.Debug("extracted embedded data", "source", data.Source)

	normalizer := s.Normalizer
	if normalizer == nil {
		normalizer = listgrab.NewNormalizer()
	}
	result := &Result{Listing: normalizer.Normalize(data, sourceURL)}

	if opts.DownloadImage {
		s.downloadImage(ctx, result, opts.ImageDir)
	}

	logger.Debug("scrape complete", "url", sourceURL, "title", result.Listing.Title, "duration", time.Since(begin))
	return result, nil
}

func (s *Scraper) downloadImage(ctx context.Context, result *Result, dir string) {
	logger := s.logger()

	imageURL := result.Listing.FirstImageURL
	if imageURL == "" {
		logger.Debug("no image URL to download")
		return
	}
	if s.Images == nil {
		result.ImageErr = listgrab.Errorf(listgrab.EINVALID, "image download requested but no image retriever is configured")
		return
	}
	if dir == "" {
		dir = DefaultImageDir
	}

	img, err := s.Images.Retrieve(ctx, listgrab.ImageRequest{
		URL:  imageURL,
		Dir:  dir,
		Name: result.Listing.ListingID,
	})
	if err != nil {
		logger.Warn("image download failed", "url", imageURL, "err", err)
		result.ImageErr = err
		return
	}
	result.Image = img
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
