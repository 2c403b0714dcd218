package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run is the CLI entrypoint used by cmd/getcanvapro.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run() error {
	envFile, err := LoadDotEnv()
	if err != nil {
		return err
	}

	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if envFile != "" {
		log.Info("env.loaded", "file", envFile)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
