package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/listgrab"
	"github.com/fwojciec/listgrab/fs"
	"github.com/fwojciec/listgrab/goquery"
	"github.com/fwojciec/listgrab/htmltomarkdown"
	lghttp "github.com/fwojciec/listgrab/http"
	"github.com/fwojciec/listgrab/rod"
	"github.com/fwojciec/listgrab/scrape"
	lgslog "github.com/fwojciec/listgrab/slog"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, FormatError(err))
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Version is printed by --version.
	Version string
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Version: version}
}

// FormatError renders err as "error: <code>: <message>". Errors without a
// code keep their text so parse failures stay readable.
func FormatError(err error) string {
	code := listgrab.ErrorCode(err)
	msg := listgrab.ErrorMessage(err)
	if code == listgrab.EINTERNAL {
		msg = err.Error()
	}
	return fmt.Sprintf("error: %s: %s", code, msg)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("listgrab"),
		kong.Description("Scrape a single marketplace listing into a structured record"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Vars{
			"image_dir": scrape.DefaultImageDir,
			"formats":   listgrab.FormatNames(","),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return listgrab.Errorf(listgrab.EINVALID, "no URL provided. Run 'listgrab --help' for usage")
	}

	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if slices.Contains(args, "--version") {
		fmt.Fprintf(stdout, "listgrab %s\n", m.Version)
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return listgrab.WrapErrorf(err, listgrab.EINVALID, "%v", err)
	}

	format, err := listgrab.ParseFormat(cli.Output)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := lgslog.NewLogger(stderr, lgslog.LoggerOptions{Level: level})

	fetcher, err := m.newFetcher(cli, logger)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	normalizer := listgrab.NewNormalizer()
	normalizer.Converter = htmltomarkdown.NewConverter()

	scraper := &scrape.Scraper{
		Fetcher:    fetcher,
		Extractor:  lgslog.NewLoggingExtractor(goquery.NewExtractor(), logger),
		Normalizer: normalizer,
		Images: lgslog.NewLoggingImageRetriever(
			lghttp.NewImageRetriever(fs.NewImageStore(), cli.httpOptions()...),
			logger,
		),
		Logger: logger,
	}

	result, err := scraper.Scrape(ctx, cli.URL, scrape.Options{
		DownloadImage: cli.DownloadImage,
		ImageDir:      cli.ImageDir,
	})
	if err != nil {
		return err
	}
	if result.Image != nil {
		logger.Info("saved image", "path", result.Image.Path, "bytes", result.Image.Bytes)
	}

	if _, err := fmt.Fprintln(stdout, listgrab.FormatListing(result.Listing, format)); err != nil {
		return listgrab.WrapErrorf(err, listgrab.EWRITE, "writing output: %v", err)
	}
	return nil
}

// newFetcher builds the page fetcher chain: transport, logging, retries.
func (m *Main) newFetcher(cli *CLI, logger *slog.Logger) (listgrab.Fetcher, error) {
	var base listgrab.Fetcher
	if cli.Render {
		f, err := rod.NewFetcher(
			rod.WithFetchTimeout(cli.Timeout),
			rod.WithDelay(cli.Delay),
			rod.WithUserAgent(cli.userAgent()),
			rod.WithBrowserBinary(cli.BrowserBin),
		)
		if err != nil {
			logger.Error("Chrome or Chromium must be installed for --render")
			return nil, err
		}
		base = f
	} else {
		base = lghttp.NewFetcher(cli.httpOptions()...)
	}

	return scrape.NewRetryFetcher(lgslog.NewLoggingFetcher(base, logger), cli.Retries, logger), nil
}
