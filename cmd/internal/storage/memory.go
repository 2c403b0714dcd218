package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is the development fallback used when no database is configured.
// Data does not survive a restart.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]User   // id -> user
	usersByKey map[string]string // username_norm -> id

	apps   []Application // insertion order
	appIDs map[string]struct{}
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]User),
		usersByKey: make(map[string]string),
		apps:       make([]Application, 0, 64),
		appIDs:     make(map[string]struct{}),
	}
}

// GetUser fetches a user by id.
func (s *MemoryStore) GetUser(ctx context.Context, id string) (User, error) {
	const op = "storage.memory.GetUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, invalid(op, "missing id")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return u, nil
}

// GetUserByUsername fetches a user by normalized username.
func (s *MemoryStore) GetUserByUsername(ctx context.Context, usernameNorm string) (User, error) {
	const op = "storage.memory.GetUserByUsername"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	usernameNorm = NormalizeUsername(usernameNorm)
	if usernameNorm == "" {
		return User{}, invalid(op, "missing username")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByKey[usernameNorm]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.users[id], nil
}

// CreateUser inserts a user; username_norm must be unique.
func (s *MemoryStore) CreateUser(ctx context.Context, u User) (User, error) {
	const op = "storage.memory.CreateUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(u.ID) == "" || u.UsernameNorm == "" || u.PasswordHash == "" {
		return User{}, invalid(op, "incomplete user record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return User{}, ConflictError{Op: op, Field: "id"}
	}
	if _, ok := s.usersByKey[u.UsernameNorm]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	s.users[u.ID] = u
	s.usersByKey[u.UsernameNorm] = u.ID
	return u, nil
}

// CreateApplication appends an application. Only the id must be unique.
func (s *MemoryStore) CreateApplication(ctx context.Context, a Application) (Application, error) {
	const op = "storage.memory.CreateApplication"
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	if strings.TrimSpace(a.ID) == "" || a.CreatedAt.IsZero() || !a.Status.Valid() {
		return Application{}, invalid(op, "incomplete application record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appIDs[a.ID]; ok {
		return Application{}, ConflictError{Op: op, Field: "id"}
	}
	s.appIDs[a.ID] = struct{}{}
	s.apps = append(s.apps, a)
	return a, nil
}

// ListApplications returns a snapshot of all applications in insertion order.
func (s *MemoryStore) ListApplications(ctx context.Context) ([]Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Application(nil), s.apps...), nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(_ context.Context) error { return nil }
