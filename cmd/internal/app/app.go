// Package app wires the getcanvapro server runtime: config, logging, storage
// selection, HTTP routes and the gate gateway.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"getcanvapro/cmd/internal/intake"
	"getcanvapro/cmd/internal/metrics"
	"getcanvapro/cmd/internal/promo"
	"getcanvapro/cmd/internal/storage"
	"getcanvapro/cmd/security/password"
)

// App owns every long-lived resource of the server. Close releases them.
type App struct {
	cfg Config
	log Logger

	closers []func(context.Context) error

	repo    *storage.Repository
	metrics *metrics.Metrics

	promoLinks http.Handler
	gate       *promo.Gateway
	intake     *intake.Handler

	handler http.Handler
}

// New constructs a fully wired App. A configured database that cannot be
// reached is an error.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	links, err := promo.LoadPool(cfg.PromoLinksFile)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}

	st, closer, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)

	a.repo = storage.NewRepository(st, log, storage.WithPasswordConfig(pwCfg))
	a.metrics = metrics.New()

	a.promoLinks = promo.LinksHandler(links)
	a.gate = promo.NewGateway(log, links, promo.GatewayConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AdDelay:        cfg.GateAdDelay,
		ResetDelay:     cfg.GateResetDelay,
		FollowURL:      cfg.GateFollowURL,
	}, promo.WithEventRecorder(a.metrics))

	svc := intake.NewService(log, a.repo,
		intake.NewResumeStore(cfg.UploadDir, cfg.MaxResumeBytes),
		intake.WithResultRecorder(a.metrics),
	)
	a.intake = intake.NewHandler(log, svc, cfg.AdminToken)

	a.handler = a.routes()

	log.Info("app.ready",
		"backend", cfg.Backend(),
		"links", links.Len(),
		"upload_dir", cfg.UploadDir,
		"metrics", cfg.MetricsEnabled,
		"admin_list", cfg.AdminToken != "",
	)
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
// Owned resources are closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"backend", a.cfg.Backend(),
		"base_url", base,
		"gate_ws", wsBaseURL(base)+"/api/gate/ws",
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			runErr = err
		}
	}

	if err := a.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return runErr
}

// Close releases owned resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
