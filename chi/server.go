// Package chi serves the listing scraper over a JSON HTTP API using the
// go-chi router.
package chi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fwojciec/listgrab/scrape"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
)

// DefaultAllowedOrigins are the local development servers of common
// frontend toolchains.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Scraper runs the listing pipeline for one URL.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts scrape.Options) (*scrape.Result, error)
}

// Config holds the server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string

	// RateLimit is the sustained requests per second allowed per client.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int

	// CacheTTL is how long scraped listings are served from memory.
	// Zero disables the cache.
	CacheTTL time.Duration

	// SampleURL is scraped by GET /api/test. Empty disables the route.
	SampleURL string

	ImageDir string
	Logger   *slog.Logger
}

// Server is the listgrab REST API server.
type Server struct {
	server  *http.Server
	scraper Scraper
	cache   *cache.Cache
	config  Config
	logger  *slog.Logger
}

// NewServer creates a new Server backed by scraper.
func NewServer(scraper Scraper, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}

	s := &Server{
		scraper: scraper,
		config:  cfg,
		logger:  cfg.Logger,
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.config.RateLimit > 0 {
		r.Use(rateLimit(NewClientLimiter(s.config.RateLimit, s.config.RateBurst)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not_found", "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/scrape", s.handleScrape)
		r.Get("/test", s.handleTest)
	})

	return r
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping API server")
	return s.server.Shutdown(ctx)
}
