package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mustApp(t *testing.T, name string) Application {
	t.Helper()
	now := time.Now().UTC()
	id, err := NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	return Application{
		ID:         id,
		Name:       name,
		Email:      "jane@example.com",
		Phone:      "+91 9876543210",
		ResumePath: "uploads/1700000000000-abc.pdf",
		CreatedAt:  now,
		Status:     StatusPending,
	}
}

func TestMemoryStore_UserRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	id, _ := NewULID(time.Now())
	in := User{ID: id, Username: "Jane", UsernameNorm: "jane", PasswordHash: "$argon2id$x", CreatedAt: time.Now().UTC()}
	if _, err := s.CreateUser(ctx, in); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, id)
	if err != nil || got.Username != "Jane" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}
	got, err = s.GetUserByUsername(ctx, "  JANE ")
	if err != nil || got.ID != id {
		t.Fatalf("GetUserByUsername = %+v, %v", got, err)
	}
}

func TestMemoryStore_UsernameConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	a, _ := NewULID(time.Now())
	b, _ := NewULID(time.Now())
	if _, err := s.CreateUser(ctx, User{ID: a, Username: "jane", UsernameNorm: "jane", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := s.CreateUser(ctx, User{ID: b, Username: "JANE", UsernameNorm: "jane", PasswordHash: "h"})
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "username" {
		t.Fatalf("expected username conflict, got %v", err)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	if _, err := s.GetUser(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetUserByUsername(context.Background(), "ghost"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetUser(context.Background(), "  "); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestMemoryStore_ApplicationsInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	first := mustApp(t, "First")
	second := mustApp(t, "Second")
	for _, a := range []Application{first, second} {
		if _, err := s.CreateApplication(ctx, a); err != nil {
			t.Fatalf("CreateApplication: %v", err)
		}
	}

	if _, err := s.CreateApplication(ctx, first); !IsConflict(err) {
		t.Fatalf("expected id conflict, got %v", err)
	}

	list, err := s.ListApplications(ctx)
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(list) != 2 || list[0].Name != "First" || list[1].Name != "Second" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Snapshot must not alias internal state.
	list[0].Name = "mutated"
	again, _ := s.ListApplications(ctx)
	if again[0].Name != "First" {
		t.Fatalf("list aliases store state")
	}
}

func TestMemoryStore_RejectsIncompleteApplication(t *testing.T) {
	t.Parallel()
	a := mustApp(t, "Jane")
	a.Status = "archived"

	if _, err := NewMemoryStore().CreateApplication(context.Background(), a); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewMemoryStore().Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
