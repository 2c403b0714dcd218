package password

import (
	"strings"
	"unicode/utf8"
)

// Validate checks the length policy. It does not mutate input.
func (c Config) Validate(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordBlank
	}

	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	return nil
}
