package main

import (
	"time"

	lghttp "github.com/fwojciec/listgrab/http"
)

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL           string        `arg:"" help:"Listing URL to scrape"`
	Output        string        `short:"o" default:"json" enum:"${formats}" env:"LISTGRAB_OUTPUT" help:"Output format (${formats})"`
	DownloadImage bool          `short:"d" help:"Download the listing's first image"`
	ImageDir      string        `default:"${image_dir}" env:"LISTGRAB_IMAGE_DIR" help:"Directory for downloaded images"`
	Timeout       time.Duration `short:"t" default:"15s" env:"LISTGRAB_TIMEOUT" help:"Timeout per request"`
	Delay         time.Duration `default:"1s" env:"LISTGRAB_DELAY" help:"Pause before each request"`
	Retries       int           `default:"2" env:"LISTGRAB_RETRIES" help:"Retries after network errors"`
	UserAgent     string        `env:"LISTGRAB_USER_AGENT" help:"User-Agent header (default: desktop Chrome)"`
	Render        bool          `help:"Render the page in headless Chrome before extracting"`
	BrowserBin    string        `env:"LISTGRAB_BROWSER_BIN" help:"Chrome or Chromium binary used by --render"`
	Verbose       bool          `short:"v" help:"Log progress to stderr"`
	Version       bool          `help:"Print version and exit"`
}

func (c *CLI) userAgent() string {
	if c.UserAgent == "" {
		return lghttp.DefaultUserAgent
	}
	return c.UserAgent
}

func (c *CLI) httpOptions() []lghttp.Option {
	return []lghttp.Option{
		lghttp.WithTimeout(c.Timeout),
		lghttp.WithDelay(c.Delay),
		lghttp.WithUserAgent(c.userAgent()),
	}
}
