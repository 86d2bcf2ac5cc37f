package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fwojciec/listgrab"
	"github.com/fwojciec/listgrab/scrape"
	"github.com/go-chi/chi/v5/middleware"
)

// maxRequestBody bounds the size of a scrape request body.
const maxRequestBody = 1 << 20

type scrapeRequest struct {
	URL           string `json:"url"`
	DownloadImage bool   `json:"download_image"`
	Format        string `json:"format"`
}

type scrapeResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message,omitempty"`
	Data       listgrab.Listing     `json:"data"`
	Image      *listgrab.SavedImage `json:"image,omitempty"`
	ImageError string               `json:"image_error,omitempty"`
	Output     string               `json:"output,omitempty"`
	Cached     bool                 `json:"cached,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Message: "listgrab API is running",
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		msg := "Request body must be a JSON object"
		if errors.Is(err, io.EOF) {
			msg = "No JSON data provided"
		}
		writeFailure(w, http.StatusBadRequest, listgrab.EINVALID, msg)
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeFailure(w, http.StatusBadRequest, listgrab.EINVALIDURL, "URL parameter is required")
		return
	}

	format, err := listgrab.ParseFormat(req.Format)
	if err != nil {
		writeError(w, err)
		return
	}

	s.scrape(w, r, req.URL, req.DownloadImage, format, "")
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if s.config.SampleURL == "" {
		writeFailure(w, http.StatusNotFound, "not_found", "No sample URL is configured")
		return
	}
	s.scrape(w, r, s.config.SampleURL, false, listgrab.FormatJSON, "Test scrape successful")
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request, url string, downloadImage bool, format listgrab.Format, message string) {
	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))

	if !downloadImage {
		if l, ok := s.cached(url); ok {
			logger.Debug("serving cached listing", "url", url)
			writeJSON(w, http.StatusOK, newScrapeResponse(l, format, message, true))
			return
		}
	}

	result, err := s.scraper.Scrape(r.Context(), url, scrape.Options{
		DownloadImage: downloadImage,
		ImageDir:      s.config.ImageDir,
	})
	if err != nil {
		logger.Warn("scrape failed", "url", url, "code", listgrab.ErrorCode(err), "err", err)
		writeError(w, err)
		return
	}

	if !downloadImage && s.cache != nil {
		s.cache.SetDefault(url, result.Listing)
	}

	resp := newScrapeResponse(result.Listing, format, message, false)
	resp.Image = result.Image
	if result.ImageErr != nil {
		resp.ImageError = listgrab.ErrorMessage(result.ImageErr)
	}
	logger.Info("scrape succeeded", "url", url, "title", result.Listing.Title)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cached(url string) (listgrab.Listing, bool) {
	if s.cache == nil {
		return listgrab.Listing{}, false
	}
	v, ok := s.cache.Get(url)
	if !ok {
		return listgrab.Listing{}, false
	}
	l, ok := v.(listgrab.Listing)
	return l, ok
}

func newScrapeResponse(l listgrab.Listing, format listgrab.Format, message string, cached bool) scrapeResponse {
	resp := scrapeResponse{Success: true, Message: message, Data: l, Cached: cached}
	if format != listgrab.FormatJSON {
		resp.Output = listgrab.FormatListing(l, format)
	}
	return resp
}
