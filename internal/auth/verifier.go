package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/meshconf/meshconf/internal/domain"
	"github.com/meshconf/meshconf/internal/infrastructure/configs"
)

const (
	ModeJWT    = "jwt"
	ModeAPIKey = "api_key"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Verifier authenticates an incoming request and resolves the caller's
// identity. Implementations must not read the request body; browsers cannot
// set headers on WebSocket dials, so credentials arrive as query parameters
// with an Authorization header fallback for non-browser clients.
type Verifier interface {
	VerifyRequest(r *http.Request) (domain.Identity, error)
}

func NewVerifier(cfg configs.AuthConfig) (Verifier, error) {
	switch cfg.Mode {
	case ModeJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("auth mode %q requires a JWT secret", cfg.Mode)
		}
		return newJWTVerifier(cfg.JWTSecret), nil
	case ModeAPIKey:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("auth mode %q requires an API key", cfg.Mode)
		}
		return apiKeyVerifier{expected: cfg.APIKey}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// credentialFromRequest pulls the bearer credential from the "token" query
// parameter, falling back to an "Authorization: Bearer" header.
func credentialFromRequest(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	header := r.Header.Get("Authorization")
	if scheme, cred, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "Bearer") {
		if cred = strings.TrimSpace(cred); cred != "" {
			return cred, nil
		}
	}

	return "", ErrMissingCredentials
}
