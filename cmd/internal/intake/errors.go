package intake

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidFileType rejects résumés outside the extension whitelist.
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrFileTooLarge rejects résumés over the size cap.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile rejects zero-byte uploads.
	ErrEmptyFile = errors.New("empty file")
	// ErrSubmissionFailed hides storage failures from the applicant.
	ErrSubmissionFailed = errors.New("submission failed")
)

// Messages shown to applicants.
const (
	MsgInvalidFileType  = "Invalid file type. Only PDF, DOC, and DOCX files are allowed."
	MsgSubmissionFailed = "Failed to submit application. Please try again later."
	MsgTryAgainLater    = "Please try again later."
	MsgCheckFields      = "Please correct the highlighted fields."
)

// ValidationError maps form field names to human-readable messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Fields[k])
	}
	return b.String()
}

// IsClientError reports whether err was caused by applicant input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrEmptyFile)
}
