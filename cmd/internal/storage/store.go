package storage

import "context"

// Store is the raw persistence boundary. Implementations report missing
// records as ErrNotFound and uniqueness violations as ConflictError.
//
// Records passed to Create* are fully formed (id, timestamps, status);
// stores do not generate values.
type Store interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, usernameNorm string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)

	CreateApplication(ctx context.Context, a Application) (Application, error)
	ListApplications(ctx context.Context) ([]Application, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
