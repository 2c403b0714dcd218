package origin

import (
	"strings"
	"testing"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	list := []string{"https://getcanvapro.in/", "http://localhost:*", "https://*.getcanvapro.in"}
	cases := []struct {
		origin string
		want   bool
	}{
		{"https://getcanvapro.in", true},
		{"https://getcanvapro.in/", true},
		{"HTTPS://GETCANVAPRO.IN", true},
		{"http://getcanvapro.in", false},
		{"http://localhost:3000", true},
		{"https://www.getcanvapro.in", true},
		{"https://getcanvapro.in.evil.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Allowed(list, tc.origin); got != tc.want {
			t.Fatalf("Allowed(%q)=%v want=%v", tc.origin, got, tc.want)
		}
	}
	if !Allowed([]string{"*"}, "https://anything.example") {
		t.Fatalf("star must allow all")
	}
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	if !SameHost("http://staging.internal:3000/", "staging.internal:3000") {
		t.Fatalf("same host rejected")
	}
	if SameHost("http://staging.internal:3000", "staging.internal:3001") {
		t.Fatalf("different port accepted")
	}
	if SameHost("not a url", "") {
		t.Fatalf("empty host matched")
	}
}

func TestHostPatterns(t *testing.T) {
	t.Parallel()

	got := HostPatterns([]string{
		"https://www.getcanvapro.in",
		"http://localhost:3000/",
		"http://getcanvapro.in",
		"https://getcanvapro.in",
		"http://127.0.0.1:*",
	})
	want := []string{"www.getcanvapro.in", "localhost:3000", "getcanvapro.in", "127.0.0.1:*"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
	if p := HostPatterns([]string{"https://a.example", "*"}); len(p) != 1 || p[0] != "*" {
		t.Fatalf("wildcard patterns = %v", p)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		entry   string
		wantErr bool
	}{
		{"*", false},
		{"https://getcanvapro.in", false},
		{"https://getcanvapro.in/", false},
		{"http://localhost:3000", false},
		{"http://127.0.0.1:*", false},
		{"https://*.getcanvapro.in", false},
		{"http://[::1]:*", false},
		{"", true},
		{"getcanvapro.in", true},
		{"ftp://x.example.com", true},
		{"https://a.example/path", true},
		{"https://*.*.example", true},
		{"http://127.0.0.1:abc", true},
		{"https://", true},
	}
	for _, tc := range cases {
		err := Validate(tc.entry)
		if (err != nil) != tc.wantErr {
			t.Fatalf("Validate(%q) err=%v wantErr=%v", tc.entry, err, tc.wantErr)
		}
	}
}
