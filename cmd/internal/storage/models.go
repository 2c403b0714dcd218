package storage

import (
	"strings"
	"time"
)

// Status is the review state of an internship application.
type Status string

// Application statuses. Only StatusPending is written by this service;
// the others are set by the review process.
const (
	StatusPending   Status = "pending"
	StatusReviewing Status = "reviewing"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReviewing, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// Application is the persisted metadata for one internship submission.
type Application struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	ResumePath string    `json:"resume_path"`
	CreatedAt  time.Time `json:"created_at"`
	Status     Status    `json:"status"`
}

// User is a credential record. PasswordHash is an Argon2id PHC string.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	UsernameNorm string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewApplication is the caller-supplied part of an Application.
type NewApplication struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email,max=100"`
	Phone      string `json:"phone" validate:"required,min=10,max=20"`
	ResumePath string `json:"resume_path" validate:"required"`
}

// NewUser is a user creation request. Password is plain text and is hashed before storage.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=255"`
}

// NormalizeUsername performs case-insensitive canonicalization.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
