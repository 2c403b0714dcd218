package storage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"getcanvapro/cmd/security/password"
)

// Repository is the narrow contract used by the rest of the service.
//
// Reads never fail: a missing record and a backend failure both yield the
// absent marker (false) or an empty list, and failures are logged.
// Writes log and return the backend error.
type Repository struct {
	store Store
	log   *slog.Logger
	pw    password.Config
	now   func() time.Time
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithClock overrides the time source used for created_at and ids.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithPasswordConfig overrides the Argon2id configuration used by CreateUser.
func WithPasswordConfig(cfg password.Config) RepositoryOption {
	return func(r *Repository) { r.pw = cfg }
}

// NewRepository wraps store. A nil logger discards output.
func NewRepository(store Store, log *slog.Logger, opts ...RepositoryOption) *Repository {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	r := &Repository{
		store: store,
		log:   log,
		pw:    password.DefaultConfig(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetUser returns the user with id, or false when absent or unreadable.
func (r *Repository) GetUser(ctx context.Context, id string) (User, bool) {
	u, err := r.store.GetUser(ctx, id)
	if err != nil {
		r.logReadErr("storage.get_user.fail", err)
		return User{}, false
	}
	return u, true
}

// GetUserByUsername looks a user up case-insensitively.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (User, bool) {
	u, err := r.store.GetUserByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		r.logReadErr("storage.get_user_by_username.fail", err)
		return User{}, false
	}
	return u, true
}

// CreateUser validates in, hashes the password and stores the record.
func (r *Repository) CreateUser(ctx context.Context, in NewUser) (User, error) {
	const op = "storage.CreateUser"

	in.Username = strings.TrimSpace(in.Username)
	if err := Validate(op, in); err != nil {
		return User{}, err
	}

	hash, err := r.pw.Hash(in.Password)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	now := r.now().UTC()
	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	u, err := r.store.CreateUser(ctx, User{
		ID:           id,
		Username:     in.Username,
		UsernameNorm: NormalizeUsername(in.Username),
		PasswordHash: hash,
		CreatedAt:    now,
	})
	if err != nil {
		r.logWriteErr("storage.create_user.fail", err)
		return User{}, err
	}
	return u, nil
}

// CreateApplication stores a new pending application stamped with the current time.
// Identical inputs produce distinct records.
func (r *Repository) CreateApplication(ctx context.Context, in NewApplication) (Application, error) {
	const op = "storage.CreateApplication"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := Validate(op, in); err != nil {
		return Application{}, err
	}

	now := r.now().UTC()
	id, err := NewULID(now)
	if err != nil {
		return Application{}, err
	}

	a, err := r.store.CreateApplication(ctx, Application{
		ID:         id,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		ResumePath: in.ResumePath,
		CreatedAt:  now,
		Status:     StatusPending,
	})
	if err != nil {
		r.logWriteErr("storage.create_application.fail", err)
		return Application{}, err
	}
	return a, nil
}

// ListApplications returns every application oldest first, or an empty list on failure.
func (r *Repository) ListApplications(ctx context.Context) []Application {
	apps, err := r.store.ListApplications(ctx)
	if err != nil {
		r.log.Error("storage.list_applications.fail", "err", err)
		return []Application{}
	}
	if apps == nil {
		return []Application{}
	}
	return apps
}

// Ping reports backend health.
func (r *Repository) Ping(ctx context.Context) error { return r.store.Ping(ctx) }

func (r *Repository) logReadErr(msg string, err error) {
	if IsNotFound(err) {
		return
	}
	r.log.Error(msg, "err", err)
}

// logWriteErr logs rejected input and conflicts as warnings and everything
// else as backend failures.
func (r *Repository) logWriteErr(msg string, err error) {
	if IsConflict(err) || IsInvalidInput(err) {
		r.log.Warn(msg, "err", err)
		return
	}
	r.log.Error(msg, "err", err)
}
