package token

import "errors"

// Public, stable errors for callers.
var (
	ErrTokenMissing  = errors.New("token missing")
	ErrTokenTooShort = errors.New("token too short")
)
