package app

import (
	"errors"
	"fmt"
	"strings"

	"getcanvapro/cmd/internal/origin"
	"getcanvapro/cmd/security/token"
)

const minAdminTokenBytes = 24

// ValidateSecurityConfig rejects configurations that would expose applicant
// data or weaken the browser origin policy. It runs before anything is opened.
func ValidateSecurityConfig(cfg Config) error {
	if strings.TrimSpace(cfg.AdminToken) != "" {
		if err := token.CheckStrength(cfg.AdminToken, minAdminTokenBytes); err != nil {
			return fmt.Errorf("security policy: GETCANVAPRO_ADMIN_TOKEN (min %d bytes): %w", minAdminTokenBytes, err)
		}
	}

	for _, o := range cfg.CORSAllowedOrigins {
		if err := origin.Validate(o); err != nil {
			return fmt.Errorf("security policy: invalid CORS origin: %w", err)
		}
		if origin.Normalize(o) == origin.Wildcard && cfg.CORSAllowCredentials {
			return errors.New("security policy: CORS origin \"*\" cannot be combined with credentials")
		}
	}

	if strings.TrimSpace(cfg.UploadDir) == "" {
		return errors.New("config: GETCANVAPRO_UPLOAD_DIR must not be empty")
	}
	return nil
}
