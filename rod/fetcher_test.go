//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/listgrab"
	"github.com/fwojciec/listgrab/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Fetcher implements listgrab.Fetcher.
var _ listgrab.Fetcher = (*rod.Fetcher)(nil)

func TestFetcher_Fetch_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)
	defer fetcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err = fetcher.Fetch(ctx, srv.URL)

	require.Error(t, err)
	assert.Equal(t, listgrab.ENETWORK, listgrab.ErrorCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_Fetch_ReturnsClientSideData(t *testing.T) {
	t.Parallel()

	// The embedded data only exists after the script runs.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Listing</title></head>
<body>
<div id="root">Loading...</div>
<script>
const s = document.createElement('script');
s.id = '__NEXT_DATA__';
s.type = 'application/json';
s.textContent = JSON.stringify({props: {pageProps: {listing: {title: 'Rendered Bike'}}}});
document.body.appendChild(s);
document.getElementById('root').textContent = 'Ready';
</script>
</body>
</html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)
	defer fetcher.Close()

	page, err := fetcher.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, 200, page.StatusCode)
	assert.Contains(t, page.Body, "Rendered Bike")
	assert.NotContains(t, page.Body, "Loading...")
}

func TestFetcher_Fetch_ReportsDocumentStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html><body>gone</body></html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, listgrab.EHTTPSTATUS, listgrab.ErrorCode(err))
	assert.Equal(t, http.StatusNotFound, listgrab.ErrorStatus(err))
}

func TestFetcher_Fetch_SendsUserAgent(t *testing.T) {
	t.Parallel()

	uas := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			select {
			case uas <- r.UserAgent():
			default:
			}
		}
		_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher(rod.WithUserAgent("listgrab-test/1.0"))
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "listgrab-test/1.0", <-uas)
}

func TestFetcher_Fetch_TimeoutTriggersOnSlowPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>delayed</body></html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher(rod.WithFetchTimeout(100 * time.Millisecond))
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, listgrab.ENETWORK, listgrab.ErrorCode(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_Fetch_RejectsInvalidURL(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.Fetch(context.Background(), "not a url")

	require.Error(t, err)
	assert.Equal(t, listgrab.EINVALIDURL, listgrab.ErrorCode(err))
}

func TestFetcher_Close_Idempotent(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)

	require.NoError(t, fetcher.Close())
	require.NoError(t, fetcher.Close())
}

func TestFetcher_Fetch_AfterClose_ReturnsError(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)

	require.NoError(t, fetcher.Close())

	_, err = fetcher.Fetch(context.Background(), "http://example.com")

	require.Error(t, err)
	assert.Equal(t, listgrab.EINVALID, listgrab.ErrorCode(err))
	assert.Contains(t, listgrab.ErrorMessage(err), "closed")
}

func TestFetcher_Fetch_PausesBeforeNavigation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher(rod.WithDelay(300 * time.Millisecond))
	require.NoError(t, err)
	defer fetcher.Close()

	start := time.Now()
	_, err = fetcher.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestFetcher_Fetch_CancelInterruptsPause(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher(rod.WithDelay(time.Minute))
	require.NoError(t, err)
	defer fetcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err = fetcher.Fetch(ctx, srv.URL)

	require.Error(t, err)
	assert.Equal(t, listgrab.ENETWORK, listgrab.ErrorCode(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Zero(t, hits.Load(), "no request is sent while paused")
}

func TestFetcher_WithBrowserRecycling(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher(rod.WithDelay(0), rod.WithBrowserRecycling(1))
	require.NoError(t, err)
	defer fetcher.Close()

	_, err = fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	firstPID := fetcher.LauncherPID()

	_, err = fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.NotEqual(t, firstPID, fetcher.LauncherPID(), "browser should be restarted after one page")
}

func TestFetcher_WithBrowserBinary(t *testing.T) {
	t.Parallel()

	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no local Chrome or Chromium binary")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer srv.Close()

	fetcher, err := rod.NewFetcher(rod.WithDelay(0), rod.WithBrowserBinary(bin))
	require.NoError(t, err)
	defer fetcher.Close()

	page, err := fetcher.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, page.Body, "ok")
}

func TestFetcher_WithBrowserBinary_MissingBinary(t *testing.T) {
	t.Parallel()

	_, err := rod.NewFetcher(rod.WithBrowserBinary(filepath.Join(t.TempDir(), "no-such-chrome")))

	require.Error(t, err)
	assert.Equal(t, listgrab.EINTERNAL, listgrab.ErrorCode(err))
}
