package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Params controls Argon2id hashing cost. MemoryKiB is in KiB as required by argon2.IDKey.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds accepted passwords, counted in runes.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Params
	Policy Policy
}

// DefaultConfig returns the baseline used for user records:
// OWASP's Argon2id minimum (19 MiB, t=2, p=1) and a 6..255 length policy.
func DefaultConfig() Config {
	return Config{
		Params: Params{
			MemoryKiB:   19 * 1024,
			Iterations:  2,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 6,
			MaxLength: 255,
		},
	}
}

// envBound is one numeric env override with its accepted range.
type envBound struct {
	key      string
	min, max uint64
	set      func(*Config, uint64)
}

var envBounds = []envBound{
	{"GETCANVAPRO_PASSWORD_MIN_LEN", 1, 1024, func(c *Config, v uint64) { c.Policy.MinLength = int(v) }},
	{"GETCANVAPRO_PASSWORD_MAX_LEN", 1, 4096, func(c *Config, v uint64) { c.Policy.MaxLength = int(v) }},
	{"GETCANVAPRO_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, func(c *Config, v uint64) { c.Params.MemoryKiB = uint32(v) }},
	{"GETCANVAPRO_ARGON2_ITERATIONS", 1, 20, func(c *Config, v uint64) { c.Params.Iterations = uint32(v) }},
	{"GETCANVAPRO_ARGON2_PARALLELISM", 1, 64, func(c *Config, v uint64) { c.Params.Parallelism = uint8(v) }}, // #nosec G115 -- bounded to 64.
	{"GETCANVAPRO_ARGON2_SALT_LEN", 8, 64, func(c *Config, v uint64) { c.Params.SaltLength = uint32(v) }},
	{"GETCANVAPRO_ARGON2_KEY_LEN", 16, 64, func(c *Config, v uint64) { c.Params.KeyLength = uint32(v) }},
}

// FromEnv returns DefaultConfig with GETCANVAPRO_PASSWORD_* and GETCANVAPRO_ARGON2_*
// overrides applied. Unlike the app-level env helpers, a malformed value is an error:
// silently weakening hashing cost is not acceptable.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	for _, b := range envBounds {
		raw, ok := os.LookupEnv(b.key)
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("%s: not an unsigned integer", b.key)
		}
		if v < b.min || v > b.max {
			return Config{}, fmt.Errorf("%s: out of range [%d..%d]", b.key, b.min, b.max)
		}
		b.set(&cfg, v)
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}
	return cfg, nil
}
