package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// routes builds the HTTP surface.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	var obs HTTPObserver
	if a.metrics != nil {
		obs = a.metrics
	}
	r.Use(WithRequestLogging(a.log, obs))
	r.Use(WithSecurityHeaders)
	r.Use(func(next http.Handler) http.Handler { return WithCORS(next, a.cfg, a.log) })

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/readyz", a.handleReady)

	if a.cfg.MetricsEnabled && a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/promotions", a.promoLinks)
		r.Method(http.MethodGet, "/gate/ws", a.gate)
		r.Post("/internship/apply", a.intake.Apply)
		r.Get("/internship/applications", a.intake.List)

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeAPIError(w, http.StatusNotFound, "not_found", "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		})
	})

	r.NotFound(spaHandler(a.cfg.StaticDir).ServeHTTP)
	return r
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	backend := a.cfg.Backend()
	if a.cfg.ReadinessRequireDB && backend == "memory" {
		http.Error(w, "db not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.repo.Ping(ctx); err != nil {
		a.log.Info("readyz.db.not_ready", "backend", backend, "err", err)
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}

// spaHandler serves files from dir and falls back to index.html for other
// GET and HEAD paths so client-side routes resolve.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" {
			fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))))
			if err == nil && !fi.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		if _, err := os.Stat(index); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	})
}

func writeAPIError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": msg})
}
