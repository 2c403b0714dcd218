package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// CheckStrength enforces a minimum byte length on a configured secret.
func CheckStrength(secret string, minBytes int) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrTokenMissing
	}
	if minBytes > 0 && len(secret) < minBytes {
		return ErrTokenTooShort
	}
	return nil
}

// Verifier checks presented secrets against one configured secret.
// The zero value is disabled and rejects everything.
type Verifier struct {
	digest [sha256.Size]byte
	set    bool
}

// NewVerifier returns a Verifier for secret. A blank secret yields a disabled Verifier.
func NewVerifier(secret string) Verifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Verifier{}
	}
	return Verifier{digest: sha256.Sum256([]byte(secret)), set: true}
}

// Enabled reports whether a secret is configured.
func (v Verifier) Enabled() bool { return v.set }

// Verify reports whether presented equals the configured secret.
func (v Verifier) Verify(presented string) bool {
	if !v.set {
		return false
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(presented)))
	return subtle.ConstantTimeCompare(sum[:], v.digest[:]) == 1
}

// VerifyRequest checks the request's "Authorization: Bearer <token>" header.
func (v Verifier) VerifyRequest(r *http.Request) bool {
	tok, ok := BearerToken(r.Header.Get("Authorization"))
	return ok && v.Verify(tok)
}

// BearerToken extracts the credential from an Authorization header value.
// The scheme match is case-insensitive.
func BearerToken(header string) (string, bool) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}
