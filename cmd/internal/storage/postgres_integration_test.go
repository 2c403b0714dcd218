package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgresStore_Integration_UsersAndApplications(t *testing.T) {
	pool := mustOpenTestPool(t)
	t.Cleanup(pool.Close)

	schema := mustCreateTestSchema(t, pool)

	st, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Migrate is idempotent.
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate (second run): %v", err)
	}

	repo := NewRepository(st, nil, WithPasswordConfig(fastPasswords()))

	if _, ok := repo.GetUserByUsername(ctx, "nobody"); ok {
		t.Fatalf("expected absent user")
	}

	u, err := repo.CreateUser(ctx, NewUser{Username: "Jane", Password: "secret-pw"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	got, ok := repo.GetUserByUsername(ctx, "jane")
	if !ok || got.ID != u.ID {
		t.Fatalf("GetUserByUsername = %+v, %v", got, ok)
	}

	_, err = repo.CreateUser(ctx, NewUser{Username: "JANE", Password: "secret-pw"})
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}

	a, err := repo.CreateApplication(ctx, validApplication())
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	b, err := repo.CreateApplication(ctx, validApplication())
	if err != nil {
		t.Fatalf("CreateApplication (duplicate input): %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("expected distinct ids")
	}

	list := repo.ListApplications(ctx)
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].Status != StatusPending || list[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected record: %+v", list[0])
	}
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("GETCANVAPRO_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: GETCANVAPRO_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable: %v", err)
		}
		t.Fatalf("ping: %v", err)
	}
	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := fmt.Sprintf("gcp_test_%d", time.Now().UnixNano())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
	})
	return schema
}

// shouldSkipIntegration treats network failures as "no database here" outside CI.
func shouldSkipIntegration(err error) bool {
	if err == nil || os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "context deadline exceeded", "timeout", "dial tcp", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
