package password

import "errors"

// Public, stable errors for callers.
var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrPasswordBlank    = errors.New("password blank")
	ErrInvalidHash      = errors.New("invalid password hash")
)
