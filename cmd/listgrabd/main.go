package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/listgrab"
	lgchi "github.com/fwojciec/listgrab/chi"
	lgfs "github.com/fwojciec/listgrab/fs"
	"github.com/fwojciec/listgrab/goquery"
	"github.com/fwojciec/listgrab/htmltomarkdown"
	lghttp "github.com/fwojciec/listgrab/http"
	"github.com/fwojciec/listgrab/scrape"
	lgslog "github.com/fwojciec/listgrab/slog"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Started, if set, receives the server once it is configured.
	Started func(*lgchi.Server)
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Config defines the server settings. Every flag can also be set through
// the environment or a .env file.
type Config struct {
	EnvFile        string        `default:".env" help:"Optional dotenv file loaded before reading the environment"`
	Addr           string        `default:":5000" env:"LISTGRAB_ADDR" help:"Listen address"`
	AllowedOrigins []string      `default:"http://localhost:5173,http://localhost:3000" env:"LISTGRAB_ALLOWED_ORIGINS" help:"CORS allowed origins"`
	RateLimit      float64       `default:"2" env:"LISTGRAB_RATE_LIMIT" help:"Requests per second per client (0 disables)"`
	RateBurst      int           `default:"5" env:"LISTGRAB_RATE_BURST" help:"Burst size per client"`
	CacheTTL       time.Duration `default:"5m" env:"LISTGRAB_CACHE_TTL" help:"How long scraped listings are cached (0 disables)"`
	SampleURL      string        `env:"LISTGRAB_SAMPLE_URL" help:"Listing scraped by GET /api/test"`
	ImageDir       string        `default:"${image_dir}" env:"LISTGRAB_IMAGE_DIR" help:"Directory for downloaded images"`
	Timeout        time.Duration `default:"15s" env:"LISTGRAB_TIMEOUT" help:"Timeout per outbound request"`
	Delay          time.Duration `default:"1s" env:"LISTGRAB_DELAY" help:"Pause before each outbound request"`
	UserAgent      string        `env:"LISTGRAB_USER_AGENT" help:"User-Agent header for outbound requests"`
	LogLevel       string        `default:"info" env:"LISTGRAB_LOG_LEVEL" enum:"debug,info,warn,error" help:"Log level"`
	LogJSON        bool          `env:"LISTGRAB_LOG_JSON" help:"Log as JSON"`
}

// LoadConfig parses args into a Config. The dotenv file named by --env-file
// is loaded first; a missing file is not an error and variables already set
// in the environment win.
func (m *Main) LoadConfig(args []string, stdout, stderr io.Writer) (*Config, error) {
	if err := loadEnvFile(envFileArg(args)); err != nil {
		return nil, err
	}

	cfg := &Config{}
	parser, err := newParser(cfg, stdout, stderr)
	if err != nil {
		return nil, err
	}

	if _, err := parser.Parse(args); err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.EINVALID, "%v", err)
	}
	return cfg, nil
}

// Run starts the server and blocks until ctx is canceled.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if slices.Contains(args, "--help") || slices.Contains(args, "-h") {
		parser, err := newParser(&Config{}, stdout, stderr)
		if err != nil {
			return err
		}
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	cfg, err := m.LoadConfig(args, stdout, stderr)
	if err != nil {
		return err
	}

	level, err := lgslog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := lgslog.NewLogger(stderr, lgslog.LoggerOptions{Level: level, JSON: cfg.LogJSON})

	server := lgchi.NewServer(newScraper(cfg, logger), lgchi.Config{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		CacheTTL:       cfg.CacheTTL,
		SampleURL:      cfg.SampleURL,
		ImageDir:       cfg.ImageDir,
		Logger:         logger,
	})
	if m.Started != nil {
		m.Started(server)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newScraper(cfg *Config, logger *slog.Logger) *scrape.Scraper {
	opts := []lghttp.Option{
		lghttp.WithTimeout(cfg.Timeout),
		lghttp.WithDelay(cfg.Delay),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, lghttp.WithUserAgent(cfg.UserAgent))
	}

	normalizer := listgrab.NewNormalizer()
	normalizer.Converter = htmltomarkdown.NewConverter()

	return &scrape.Scraper{
		Fetcher:    lgslog.NewLoggingFetcher(lghttp.NewFetcher(opts...), logger),
		Extractor:  lgslog.NewLoggingExtractor(goquery.NewExtractor(), logger),
		Normalizer: normalizer,
		Images:     lgslog.NewLoggingImageRetriever(lghttp.NewImageRetriever(lgfs.NewImageStore(), opts...), logger),
		Logger:     logger,
	}
}

func newParser(cfg *Config, stdout, stderr io.Writer) (*kong.Kong, error) {
	parser, err := kong.New(cfg,
		kong.Name("listgrabd"),
		kong.Description("Serve the listing scraper as a JSON HTTP API"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Vars{"image_dir": scrape.DefaultImageDir},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}
	return parser, nil
}

// envFileArg returns the --env-file value from args, or ".env".
func envFileArg(args []string) string {
	for i, arg := range args {
		if arg == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--env-file="); ok {
			return v
		}
	}
	return ".env"
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return listgrab.WrapErrorf(err, listgrab.EINVALID, "loading %s: %v", path, err)
	}
	return nil
}
