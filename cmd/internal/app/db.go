package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"getcanvapro/cmd/internal/storage"
)

const (
	dbConnectTimeout = 10 * time.Second
	dbPingTimeout    = 3 * time.Second
)

type closeFunc func(context.Context) error

// openStore selects the backend: MONGODB_URI, then the Postgres URL, then memory.
// The returned closer releases whatever connection the backend holds.
func openStore(ctx context.Context, cfg Config, log Logger) (storage.Store, closeFunc, error) {
	switch cfg.Backend() {
	case "mongo":
		return openMongo(ctx, cfg, log)
	case "postgres":
		return openPostgres(ctx, cfg, log)
	default:
		log.Warn("db.disabled.inmemory_store", "note", "data is lost on restart")
		st := storage.NewMemoryStore()
		return st, st.Close, nil
	}
}

func openMongo(ctx context.Context, cfg Config, log Logger) (storage.Store, closeFunc, error) {
	client, err := storage.ConnectMongo(ctx, cfg.MongoURI, dbConnectTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	st, err := storage.NewMongoStore(ctx, client, cfg.MongoDatabase)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo init: %w", err)
	}
	log.Info("db.enabled.mongo_store", "database", cfg.MongoDatabase)
	return st, client.Disconnect, nil
}

func openPostgres(ctx context.Context, cfg Config, log Logger) (storage.Store, closeFunc, error) {
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres connect: %w", err)
	}
	st, err := storage.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
	}
	log.Info("db.enabled.postgres_store",
		"auto_migrate", cfg.DBAutoMigrate,
		"max_conns", pool.Config().MaxConns,
	)
	return st, func(context.Context) error { pool.Close(); return nil }, nil
}

// NewDBPool builds a pgxpool from Config and fails unless a connection can be
// acquired within dbPingTimeout.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 && cfg.DBMinConns <= pcfg.MaxConns {
		pcfg.MinConns = cfg.DBMinConns
	}
	if pcfg.ConnConfig.RuntimeParams["application_name"] == "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = "getcanvapro"
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
