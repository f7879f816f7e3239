package auth

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/meshconf/meshconf/internal/domain"
)

// apiKeyVerifier is for trusted deployments where a shared key gates access
// and the caller asserts its own identity through query parameters. The key
// proves the caller is ours; it carries no identity of its own.
type apiKeyVerifier struct {
	expected string
}

func (v apiKeyVerifier) VerifyRequest(r *http.Request) (domain.Identity, error) {
	key, err := credentialFromRequest(r)
	if err != nil {
		return domain.Identity{}, err
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(v.expected)) != 1 {
		return domain.Identity{}, ErrInvalidCredentials
	}

	q := r.URL.Query()
	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return domain.Identity{}, ErrInvalidCredentials
	}

	return domain.Identity{
		UserID: domain.ParticipantID(userID),
		Name:   q.Get("name"),
	}, nil
}
