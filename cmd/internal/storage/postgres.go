package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; Close does not close it.
// Schema/table identifiers are quoted via pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "getcanvapro").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("storage: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("storage: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "getcanvapro"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("storage: nil pool")
	}
	return st, nil
}

// Migrate creates the schema, tables and indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return OpError{Op: "storage.postgres.Migrate", Kind: ErrInvalidInput, Msg: "nil store"}
	}
	users := pgIdent(s.schema, "users")
	apps := pgIdent(s.schema, "internship_applications")

	ddl := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %s;

CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  username_norm TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT uq_users_username_norm UNIQUE (username_norm),
  CONSTRAINT chk_users_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT chk_users_username_len CHECK (char_length(username) BETWEEN 3 AND 50)
);

CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  resume_path TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  status TEXT NOT NULL DEFAULT 'pending',
  CONSTRAINT chk_apps_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT chk_apps_status CHECK (status IN ('pending', 'reviewing', 'accepted', 'rejected'))
);

CREATE INDEX IF NOT EXISTS ix_internship_applications_created_at ON %s (created_at);
`, pgx.Identifier{s.schema}.Sanitize(), users, apps, apps)

	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// GetUser fetches a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	const op = "storage.postgres.GetUser"
	if s == nil || s.pool == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, invalid(op, "missing id")
	}
	return s.getUserWhere(ctx, op, "id", id)
}

// GetUserByUsername fetches a user by normalized username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, usernameNorm string) (User, error) {
	const op = "storage.postgres.GetUserByUsername"
	if s == nil || s.pool == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	usernameNorm = NormalizeUsername(usernameNorm)
	if usernameNorm == "" {
		return User{}, invalid(op, "missing username")
	}
	return s.getUserWhere(ctx, op, "username_norm", usernameNorm)
}

func (s *PostgresStore) getUserWhere(ctx context.Context, op, column, value string) (User, error) {
	users := pgIdent(s.schema, "users")

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, username_norm, password_hash, created_at
		   FROM `+users+`
		  WHERE `+pgx.Identifier{column}.Sanitize()+` = $1`,
		value,
	).Scan(&u.ID, &u.Username, &u.UsernameNorm, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

// CreateUser inserts a user record.
func (s *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	const op = "storage.postgres.CreateUser"
	if s == nil || s.pool == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(u.ID) == "" || u.UsernameNorm == "" || u.PasswordHash == "" {
		return User{}, invalid(op, "incomplete user record")
	}

	users := pgIdent(s.schema, "users")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+users+` (id, username, username_norm, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.UsernameNorm, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// CreateApplication inserts an application record.
func (s *PostgresStore) CreateApplication(ctx context.Context, a Application) (Application, error) {
	const op = "storage.postgres.CreateApplication"
	if s == nil || s.pool == nil {
		return Application{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	if strings.TrimSpace(a.ID) == "" || a.CreatedAt.IsZero() || !a.Status.Valid() {
		return Application{}, invalid(op, "incomplete application record")
	}

	apps := pgIdent(s.schema, "internship_applications")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+apps+` (id, name, email, phone, resume_path, created_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.Email, a.Phone, a.ResumePath, a.CreatedAt, string(a.Status),
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Application{}, ConflictError{Op: op, Field: field}
		}
		return Application{}, err
	}
	return a, nil
}

// ListApplications returns all applications ordered by creation time.
func (s *PostgresStore) ListApplications(ctx context.Context) ([]Application, error) {
	const op = "storage.postgres.ListApplications"
	if s == nil || s.pool == nil {
		return nil, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	apps := pgIdent(s.schema, "internship_applications")
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, phone, resume_path, created_at, status
		   FROM `+apps+`
		  ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Application, 0, 32)
	for rows.Next() {
		var (
			a      Application
			status string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.ResumePath, &a.CreatedAt, &status); err != nil {
			return nil, err
		}
		a.Status = Status(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks pool connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return invalid("storage.postgres.Ping", "nil store")
	}
	return s.pool.Ping(ctx)
}

// Close is a no-op: the pool is owned by the caller.
func (s *PostgresStore) Close(_ context.Context) error { return nil }

// ---- helpers ----

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_users_username_norm", strings.Contains(c, "username"):
		return "username", true
	case strings.HasSuffix(c, "_pkey"):
		return "id", true
	default:
		return "unknown", true
	}
}
