package intake

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"getcanvapro/cmd/internal/storage"
)

// DefaultMaxResumeBytes is the résumé size cap (5 MiB).
const DefaultMaxResumeBytes int64 = 5 << 20

// AllowedExtensions lists accepted résumé extensions (lower case, with dot).
var AllowedExtensions = []string{".pdf", ".doc", ".docx"}

// applicant carries the text fields through the shared validator.
type applicant struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email,max=100"`
	Phone string `json:"phone" validate:"required,min=10,max=20"`
}

var fieldMessages = map[string]map[string]string{
	"name": {
		"":    "Name must be at least 2 characters",
		"max": "Name must be at most 100 characters",
	},
	"email": {
		"":    "Please enter a valid email address",
		"max": "Email must be at most 100 characters",
	},
	"phone": {
		"": "Please enter a valid phone number",
	},
}

// ValidateFields trims and checks the applicant's text fields and whether a
// résumé was attached. It returns nil or a *ValidationError.
func ValidateFields(name, email, phone string, hasResume bool) error {
	a := applicant{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
		Phone: strings.TrimSpace(phone),
	}

	out := &ValidationError{Fields: map[string]string{}}

	var sve *storage.ValidationError
	if err := storage.Validate("intake.validate", a); err != nil {
		if !errors.As(err, &sve) {
			return err
		}
		for field, tag := range sve.Fields {
			msgs := fieldMessages[field]
			if m, ok := msgs[tag]; ok {
				out.Fields[field] = m
			} else {
				out.Fields[field] = msgs[""]
			}
		}
	}
	if !hasResume {
		out.Fields["resume"] = "Please upload your resume"
	}

	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

// CheckResume applies the extension whitelist and size cap.
// size < 0 means unknown and skips the size check.
func CheckResume(filename string, size, maxBytes int64) error {
	if !allowedExtension(filename) {
		return ErrInvalidFileType
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResumeBytes
	}
	if size > maxBytes {
		return ErrFileTooLarge
	}
	if size == 0 {
		return ErrEmptyFile
	}
	return nil
}

// FileTooLargeMessage renders the oversize message for a cap.
func FileTooLargeMessage(maxBytes int64) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResumeBytes
	}
	if maxBytes%(1<<20) == 0 {
		return fmt.Sprintf("File too large. Maximum size is %dMB.", maxBytes>>20)
	}
	return fmt.Sprintf("File too large. Maximum size is %d bytes.", maxBytes)
}

func allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}
