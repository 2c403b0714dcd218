package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcVersion = "v=19" // argon2.Version (0x13)

var b64 = base64.RawStdEncoding

// Hash validates password against the policy and returns its PHC-encoded Argon2id hash.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	p := c.Params
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)

	return "$argon2id$" + phcVersion +
		"$m=" + strconv.FormatUint(uint64(p.MemoryKiB), 10) +
		",t=" + strconv.FormatUint(uint64(p.Iterations), 10) +
		",p=" + strconv.FormatUint(uint64(p.Parallelism), 10) +
		"$" + b64.EncodeToString(salt) +
		"$" + b64.EncodeToString(key), nil
}

// Verify reports whether password matches encoded.
// Malformed or out-of-bounds hashes return (false, ErrInvalidHash).
func (c Config) Verify(encoded, password string) (bool, error) {
	p, salt, want, err := decode(encoded)
	if err != nil {
		return false, err
	}
	if !c.acceptable(p) {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// acceptable allows hashes made with older, cheaper settings but refuses
// anything more than twice the configured cost.
func (c Config) acceptable(p Params) bool {
	lim := c.Params
	switch {
	case p.MemoryKiB > lim.MemoryKiB*2:
		return false
	case p.Iterations > lim.Iterations*2:
		return false
	case p.Parallelism > lim.Parallelism*2:
		return false
	case p.SaltLength < 8 || p.SaltLength > 64:
		return false
	case p.KeyLength < 16 || p.KeyLength > 128:
		return false
	}
	return true
}

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != phcVersion {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var p Params
	fields := strings.Split(parts[3], ",")
	if len(fields) != 3 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	for i, prefix := range []string{"m=", "t=", "p="} {
		v, ok := strings.CutPrefix(fields[i], prefix)
		if !ok {
			return Params{}, nil, nil, ErrInvalidHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return Params{}, nil, nil, ErrInvalidHash
		}
		switch i {
		case 0:
			p.MemoryKiB = uint32(n)
		case 1:
			p.Iterations = uint32(n)
		case 2:
			if n > 255 {
				return Params{}, nil, nil, ErrInvalidHash
			}
			p.Parallelism = uint8(n)
		}
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt)) // #nosec G115 -- bounded by acceptable().
	p.KeyLength = uint32(len(key))   // #nosec G115 -- bounded by acceptable().

	return p, salt, key, nil
}
