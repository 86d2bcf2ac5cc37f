package chi

import (
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/fwojciec/listgrab"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request after it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func(begin time.Time) {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(begin),
					"remote", r.RemoteAddr,
					"request_id", middleware.GetReqID(r.Context()),
				)
			}(time.Now())
			next.ServeHTTP(ww, r)
		})
	}
}

// recoverer turns a handler panic into a 500 failure envelope.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic serving request",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeFailure(w, http.StatusInternalServerError, listgrab.EINTERNAL, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit rejects clients that exceed their allowance with 429.
func rateLimit(limiter *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", "1")
				writeFailure(w, http.StatusTooManyRequests, "rate_limited", "Too many requests; slow down and try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the client by IP address. RealIP has already
// replaced RemoteAddr when a forwarding header was present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
