package main_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/listgrab"
	lgchi "github.com/fwojciec/listgrab/chi"
	main "github.com/fwojciec/listgrab/cmd/listgrabd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestMain_LoadConfig_EnvFile(t *testing.T) {
	// godotenv writes to the process environment, so this test cannot run
	// in parallel with the others.
	keys := []string{"LISTGRAB_ADDR", "LISTGRAB_ALLOWED_ORIGINS", "LISTGRAB_RATE_LIMIT", "LISTGRAB_SAMPLE_URL"}
	for _, k := range keys {
		_, set := os.LookupEnv(k)
		require.False(t, set, "%s must not be set when running tests", k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})

	path := filepath.Join(t.TempDir(), "listgrab.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"LISTGRAB_ADDR=127.0.0.1:9999\n"+
			"LISTGRAB_ALLOWED_ORIGINS=https://a.example,https://b.example\n"+
			"LISTGRAB_RATE_LIMIT=0.5\n"+
			"LISTGRAB_SAMPLE_URL=https://example.com/item/detail/abc-123\n",
	), 0o644))

	var stdout, stderr bytes.Buffer
	cfg, err := main.NewMain().LoadConfig([]string{"--env-file", path}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.InDelta(t, 0.5, cfg.RateLimit, 1e-9)
	assert.Equal(t, "https://example.com/item/detail/abc-123", cfg.SampleURL)
}

func TestMain_LoadConfig_EnvironmentAndFlags(t *testing.T) {
	t.Setenv("LISTGRAB_ADDR", ":7000")
	t.Setenv("LISTGRAB_CACHE_TTL", "1m")

	var stdout, stderr bytes.Buffer
	cfg, err := main.NewMain().LoadConfig([]string{missingEnvFile(t), "--addr", ":8000"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Addr, "flags win over the environment")
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestMain_LoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	cfg, err := main.NewMain().LoadConfig([]string{missingEnvFile(t)}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, lgchi.DefaultAllowedOrigins, cfg.AllowedOrigins)
	assert.InDelta(t, 2.0, cfg.RateLimit, 1e-9)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "downloaded_images", cfg.ImageDir)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.Delay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
}

func TestMain_LoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"--log-level=loud"},
		{"--rate-limit=fast"},
		{"--bogus"},
	} {
		t.Run(args[0], func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			_, err := main.NewMain().LoadConfig(append([]string{missingEnvFile(t)}, args...), &stdout, &stderr)

			require.Error(t, err)
			assert.Equal(t, listgrab.EINVALID, listgrab.ErrorCode(err))
		})
	}
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := main.NewMain().Run(context.Background(), []string{"--help"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "listgrabd")
	assert.Contains(t, stdout.String(), "--addr")
	assert.Contains(t, stdout.String(), "--env-file")
}

func TestMain_Run_ServesUntilCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var health int
	m := main.NewMain()
	m.Started = func(s *lgchi.Server) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		health = rec.Code
		cancel()
	}

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, []string{missingEnvFile(t), "--addr=127.0.0.1:0", "--log-level=error"}, &stdout, &stderr)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
	assert.Equal(t, http.StatusOK, health)
}

func TestMain_Run_InvalidConfig(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := main.NewMain().Run(context.Background(), []string{missingEnvFile(t), "--log-level=loud"}, &stdout, &stderr)

	require.Error(t, err)
	assert.Equal(t, listgrab.EINVALID, listgrab.ErrorCode(err))
}
