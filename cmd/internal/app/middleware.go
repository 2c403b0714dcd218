package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"getcanvapro/cmd/internal/origin"
)

// HTTPObserver receives one call per finished request (metrics).
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, d time.Duration)
}

// WithRequestLogging returns chi middleware that logs each request with its
// route pattern and reports it to obs (which may be nil).
//
// The wrapped ResponseWriter keeps Hijacker and Flusher so WebSocket upgrades work.
func WithRequestLogging(log *slog.Logger, obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lrw := &loggingResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(lrw, r)

			elapsed := time.Since(start)
			route := routePattern(r)
			level, result := requestLogMeta(lrw.status)

			log.Log(r.Context(), level, "http.request",
				"method", r.Method,
				"route", route,
				"path", r.URL.Path,
				"status", lrw.status,
				"status_class", statusClass(lrw.status),
				"result", result,
				"duration_ms", elapsed.Milliseconds(),
				"bytes", lrw.bytes,
				"remote", r.RemoteAddr,
			)
			if obs != nil {
				obs.ObserveHTTP(route, r.Method, lrw.status, elapsed)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func requestLogMeta(status int) (slog.Level, string) {
	switch {
	case status >= 500:
		return slog.LevelError, "server_error"
	case status >= 400:
		return slog.LevelWarn, "client_error"
	case status >= 300:
		return slog.LevelInfo, "redirect"
	default:
		return slog.LevelInfo, "success"
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return string(rune('0'+status/100)) + "xx"
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	// A hijacked connection is a successful upgrade.
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return hj.Hijack()
}

func (w *loggingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *loggingResponseWriter) ReadFrom(r io.Reader) (int64, error) {
	w.wroteHeader = true
	n, err := io.Copy(w.ResponseWriter, r)
	w.bytes += n
	return n, err
}

func (w *loggingResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// WithCORS applies the origin allow-list. Cross-origin requests from origins
// outside the list get 403; same-host requests and requests without Origin pass.
func WithCORS(next http.Handler, cfg Config, log *slog.Logger) http.Handler {
	allowed := func(o string) bool { return origin.Allowed(cfg.CORSAllowedOrigins, o) }

	c := cors.New(cors.Options{
		AllowOriginFunc:  func(_ *http.Request, o string) bool { return allowed(o) },
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAgeSeconds,
	})
	h := c.Handler(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o := strings.TrimSpace(r.Header.Get("Origin"))
		if o != "" && !origin.SameHost(o, r.Host) && !allowed(o) {
			log.Info("cors.reject", "origin", o, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "forbidden", "message": "origin not allowed"})
			return
		}
		h.ServeHTTP(w, r)
	})
}

// WithSecurityHeaders sets conservative browser security headers.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
