// Package origin holds the browser-origin allow-list rules shared by the CORS
// middleware, the gate WebSocket handshake and startup config validation.
//
// An allow-list entry is "*", an exact origin ("https://getcanvapro.in"), or an
// origin with one '*' standing for any run of characters ("http://127.0.0.1:*",
// "https://*.getcanvapro.in"). Entries and origins are compared after Normalize.
package origin

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Wildcard allows every origin.
const Wildcard = "*"

// Normalize lower-cases s and drops surrounding spaces and trailing slashes.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), "/"))
}

// Allowed reports whether origin matches an entry of list.
func Allowed(list []string, origin string) bool {
	origin = Normalize(origin)
	if origin == "" {
		return false
	}
	for _, a := range list {
		a = Normalize(a)
		if a == Wildcard || a == origin {
			return true
		}
		if pre, suf, ok := strings.Cut(a, "*"); ok {
			if len(origin) >= len(pre)+len(suf) && strings.HasPrefix(origin, pre) && strings.HasSuffix(origin, suf) {
				return true
			}
		}
	}
	return false
}

// SameHost reports whether origin names host (host[:port] of the request).
func SameHost(origin, host string) bool {
	h := Host(origin)
	return h != "" && strings.EqualFold(h, host)
}

// Host returns the lower-cased host[:port] of an origin, or "" when it has none.
func Host(origin string) string {
	u, err := url.Parse(Normalize(origin))
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

// HostPatterns turns list into host[:port] patterns in path.Match syntax, the
// form websocket.AcceptOptions.OriginPatterns expects. A "*" entry yields ["*"].
func HostPatterns(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, a := range list {
		a = Normalize(a)
		if a == Wildcard {
			return []string{Wildcard}
		}
		_, host, ok := strings.Cut(a, "://")
		if !ok || host == "" {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	return out
}

// Validate checks that entry is "*" or an http(s) origin with at most one '*'
// and no path, query or fragment.
func Validate(entry string) error {
	e := Normalize(entry)
	if e == "" {
		return errors.New("empty origin")
	}
	if e == Wildcard {
		return nil
	}
	if strings.Count(e, "*") > 1 {
		return fmt.Errorf("origin %q: at most one '*' is allowed", entry)
	}

	scheme, authority, ok := strings.Cut(e, "://")
	if !ok || (scheme != "http" && scheme != "https") {
		return fmt.Errorf("origin %q: scheme must be http or https", entry)
	}
	if authority == "" || strings.ContainsAny(authority, "/?#@") {
		return fmt.Errorf("origin %q: must be scheme://host[:port]", entry)
	}

	u, err := url.Parse(scheme + "://" + placeholder(authority))
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("origin %q: invalid host", entry)
	}
	return nil
}

// placeholder replaces the '*' with a value that parses in its position:
// digits after the port colon, a label anywhere in the host.
func placeholder(authority string) string {
	i := strings.IndexByte(authority, '*')
	if i < 0 {
		return authority
	}
	fill := "x"
	if colon := strings.LastIndexByte(authority, ':'); colon >= 0 && colon < i && !strings.Contains(authority[colon:], "]") {
		fill = "0"
	}
	return authority[:i] + fill + authority[i+1:]
}
