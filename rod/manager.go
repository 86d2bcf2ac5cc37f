package rod

import (
	"sync"
	"sync/atomic"

	"github.com/fwojciec/listgrab"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the default number of pages before browser recycling.
const DefaultMaxPages = 75

// BrowserManager owns the headless Chrome process behind rendered fetches
// and restarts it after a fixed number of pages. Chrome's resident memory
// keeps climbing while it renders listing pages, and closing pages does not
// bring the baseline back down, so a fetcher that lives as long as the API
// server has to replace the browser periodically.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	bin       string
	pageCount atomic.Int64
	maxPages  int64
	mu        sync.Mutex
	closed    atomic.Bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the maximum number of pages before the browser is recycled.
// Defaults to DefaultMaxPages (75) if not specified. Zero or a negative value
// disables recycling, which suits one-shot CLI runs.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithBrowserBin uses the Chrome or Chromium binary at path. Without it the
// launcher looks for a system install and, failing that, downloads a
// revision of Chromium, which is slow on first use and may be unwanted on
// servers with a managed browser.
func WithBrowserBin(path string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.bin = path
	}
}

// NewBrowserManager launches a headless Chrome browser right away, so a
// missing or broken binary is reported at startup rather than on the first
// fetch. Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(bm)
	}

	if err := bm.launchBrowser(); err != nil {
		return nil, err
	}

	return bm, nil
}

// Browser returns the current browser, restarting it first when the page
// count has reached the limit. Callers report each finished page with
// IncrementPageCount.
func (bm *BrowserManager) Browser() *rod.Browser {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.maxPages > 0 && bm.pageCount.Load() >= bm.maxPages {
		bm.recycleBrowser()
	}

	return bm.browser
}

// IncrementPageCount records one processed page. Fetchers call it once per
// page, successful or not, since failed navigations cost Chrome memory too.
func (bm *BrowserManager) IncrementPageCount() {
	bm.pageCount.Add(1)
}

// Close releases browser resources. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	if !bm.closed.CompareAndSwap(false, true) {
		return nil
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	return bm.closeBrowser()
}

// launchBrowser starts a new browser. The extra flags keep background tabs
// from being throttled and move shared memory off /dev/shm, which is small
// in most containers. Leakless makes sure Chrome dies with this process.
func (bm *BrowserManager) launchBrowser() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)
	if bm.bin != "" {
		l = l.Bin(bm.bin)
	}

	u, err := l.Launch()
	if err != nil {
		return listgrab.WrapErrorf(err, listgrab.EINTERNAL, "launching browser: %v", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return listgrab.WrapErrorf(err, listgrab.EINTERNAL, "connecting to browser: %v", err)
	}

	bm.browser = browser
	bm.launcher = l
	return nil
}

// closeBrowser shuts down the current browser and kills its launcher.
// Must be called with mu held.
func (bm *BrowserManager) closeBrowser() error {
	var err error
	if bm.browser != nil {
		err = bm.browser.Close()
		bm.browser = nil
	}
	if bm.launcher != nil {
		bm.launcher.Kill()
		bm.launcher = nil
	}
	return err
}

// recycleBrowser starts a fresh browser and then closes the old one. If the
// new browser cannot be launched the old one stays in service and the page
// count is left as is, so the next call tries again.
// Must be called with mu held.
func (bm *BrowserManager) recycleBrowser() {
	oldBrowser, oldLauncher := bm.browser, bm.launcher

	if err := bm.launchBrowser(); err != nil {
		bm.browser, bm.launcher = oldBrowser, oldLauncher
		return
	}

	if oldBrowser != nil {
		_ = oldBrowser.Close()
	}
	if oldLauncher != nil {
		oldLauncher.Kill()
	}
	bm.pageCount.Store(0)
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.launcher == nil {
		return 0
	}
	return bm.launcher.PID()
}
