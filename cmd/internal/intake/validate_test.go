package intake

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		in        [3]string
		hasResume bool
		want      map[string]string
	}{
		{
			name:      "valid",
			in:        [3]string{"Jane Doe", "jane@example.com", "9876543210"},
			hasResume: true,
		},
		{
			name:      "trimmed name too short",
			in:        [3]string{"  J ", "jane@example.com", "9876543210"},
			hasResume: true,
			want:      map[string]string{"name": "Name must be at least 2 characters"},
		},
		{
			name:      "bad email",
			in:        [3]string{"Jane", "not-an-email", "9876543210"},
			hasResume: true,
			want:      map[string]string{"email": "Please enter a valid email address"},
		},
		{
			name:      "short phone",
			in:        [3]string{"Jane", "jane@example.com", "12345"},
			hasResume: true,
			want:      map[string]string{"phone": "Please enter a valid phone number"},
		},
		{
			name:      "long phone",
			in:        [3]string{"Jane", "jane@example.com", strings.Repeat("9", 21)},
			hasResume: true,
			want:      map[string]string{"phone": "Please enter a valid phone number"},
		},
		{
			name: "everything missing",
			in:   [3]string{"", "", ""},
			want: map[string]string{
				"name":   "Name must be at least 2 characters",
				"email":  "Please enter a valid email address",
				"phone":  "Please enter a valid phone number",
				"resume": "Please upload your resume",
			},
		},
		{
			name:      "name too long",
			in:        [3]string{strings.Repeat("n", 101), "jane@example.com", "9876543210"},
			hasResume: true,
			want:      map[string]string{"name": "Name must be at most 100 characters"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFields(tc.in[0], tc.in[1], tc.in[2], tc.hasResume)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Fields) != len(tc.want) {
				t.Fatalf("fields = %v, want %v", ve.Fields, tc.want)
			}
			for k, v := range tc.want {
				if ve.Fields[k] != v {
					t.Fatalf("fields[%s] = %q, want %q", k, ve.Fields[k], v)
				}
			}
		})
	}
}

func TestCheckResume(t *testing.T) {
	t.Parallel()

	cases := []struct {
		file string
		size int64
		want error
	}{
		{"cv.pdf", 1024, nil},
		{"CV.PDF", 1024, nil},
		{"cv.doc", 1024, nil},
		{"cv.docx", 5 << 20, nil},
		{"cv.docx", 5<<20 + 1, ErrFileTooLarge},
		{"cv.pdf", -1, nil},
		{"cv.pdf", 0, ErrEmptyFile},
		{"cv.exe", 1024, ErrInvalidFileType},
		{"cv", 1024, ErrInvalidFileType},
		{"cv.pdf.exe", 1024, ErrInvalidFileType},
	}
	for _, tc := range cases {
		if err := CheckResume(tc.file, tc.size, DefaultMaxResumeBytes); !errors.Is(err, tc.want) {
			t.Fatalf("CheckResume(%q, %d) = %v, want %v", tc.file, tc.size, err, tc.want)
		}
	}
}

func TestFileTooLargeMessage(t *testing.T) {
	t.Parallel()
	if got := FileTooLargeMessage(5 << 20); got != "File too large. Maximum size is 5MB." {
		t.Fatalf("got %q", got)
	}
	if got := FileTooLargeMessage(1000); got != "File too large. Maximum size is 1000 bytes." {
		t.Fatalf("got %q", got)
	}
}
