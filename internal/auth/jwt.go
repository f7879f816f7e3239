package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meshconf/meshconf/internal/domain"
)

var ErrUnsupportedJWT = errors.New("unsupported jwt")

const (
	// HMAC-SHA256 output size in bytes.
	hmacSHA256SigLen = 32
	// 32 bytes in base64url without padding is always 43 chars.
	hmacSHA256SigB64Len = 43
	maxJWTHeaderB64Len  = 4 * 1024
	maxJWTPayloadB64Len = 16 * 1024
	maxJWTLen           = maxJWTHeaderB64Len + 1 + maxJWTPayloadB64Len + 1 + hmacSHA256SigB64Len
)

// b64url decodes canonical base64url-no-pad. Strict mode rejects nonzero
// trailing bits so every signature and claim set has exactly one encoding.
var b64url = base64.RawURLEncoding.Strict()

type jwtVerifier struct {
	secret []byte
	now    func() time.Time
}

func newJWTVerifier(secret string) jwtVerifier {
	return jwtVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// VerifyRequest checks the token's HS256 signature and time claims and
// returns the identity carried in the numeric user_id claim. The user_id is
// what presence and routing key on, so a forged or replayed token must never
// get this far.
func (v jwtVerifier) VerifyRequest(r *http.Request) (domain.Identity, error) {
	token, err := credentialFromRequest(r)
	if err != nil {
		return domain.Identity{}, err
	}
	return v.verify(token)
}

func (v jwtVerifier) verify(token string) (domain.Identity, error) {
	headerB64, payloadB64, sigB64, ok := splitToken(token)
	if !ok {
		return domain.Identity{}, ErrInvalidCredentials
	}

	headerJSON, err := b64url.DecodeString(headerB64)
	if err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}

	var header struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}
	if header.Alg != "HS256" {
		return domain.Identity{}, ErrUnsupportedJWT
	}

	gotSig, err := b64url.DecodeString(sigB64)
	if err != nil || len(gotSig) != hmacSHA256SigLen {
		return domain.Identity{}, ErrInvalidCredentials
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write([]byte(headerB64))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write([]byte(payloadB64))
	if !hmac.Equal(gotSig, mac.Sum(nil)) {
		return domain.Identity{}, ErrInvalidCredentials
	}

	payloadJSON, err := b64url.DecodeString(payloadB64)
	if err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}

	claims, err := decodeClaims(payloadJSON)
	if err != nil {
		return domain.Identity{}, err
	}

	now := v.now().Unix()

	exp, ok := claims["exp"]
	if !ok {
		return domain.Identity{}, ErrInvalidCredentials
	}
	expUnix, err := unixTimestamp(exp)
	if err != nil || now >= expUnix {
		return domain.Identity{}, ErrInvalidCredentials
	}

	if nbf, ok := claims["nbf"]; ok {
		nbfUnix, err := unixTimestamp(nbf)
		if err != nil || now < nbfUnix {
			return domain.Identity{}, ErrInvalidCredentials
		}
	}

	userIDRaw, ok := claims["user_id"]
	if !ok {
		return domain.Identity{}, ErrInvalidCredentials
	}
	userIDNum, ok := userIDRaw.(json.Number)
	if !ok {
		return domain.Identity{}, ErrInvalidCredentials
	}
	userID, err := userIDNum.Int64()
	if err != nil || userID <= 0 {
		return domain.Identity{}, ErrInvalidCredentials
	}

	identity := domain.Identity{UserID: domain.ParticipantID(userID)}
	if nameRaw, ok := claims["name"]; ok {
		name, ok := nameRaw.(string)
		if !ok {
			return domain.Identity{}, ErrInvalidCredentials
		}
		identity.Name = name
	}

	return identity, nil
}

// decodeClaims parses the payload as exactly one JSON object, with numbers
// kept as json.Number so large user IDs survive intact.
func decodeClaims(payloadJSON []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payloadJSON))
	dec.UseNumber()

	var claims map[string]any
	if err := dec.Decode(&claims); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, ErrInvalidCredentials
	}

	return claims, nil
}

func splitToken(token string) (headerB64, payloadB64, sigB64 string, ok bool) {
	if token == "" || len(token) > maxJWTLen {
		return "", "", "", false
	}

	headerB64, rest, found := strings.Cut(token, ".")
	if !found {
		return "", "", "", false
	}
	payloadB64, sigB64, found = strings.Cut(rest, ".")
	if !found || strings.Contains(sigB64, ".") {
		return "", "", "", false
	}

	if headerB64 == "" || payloadB64 == "" {
		return "", "", "", false
	}
	if len(headerB64) > maxJWTHeaderB64Len || len(payloadB64) > maxJWTPayloadB64Len {
		return "", "", "", false
	}
	if len(sigB64) != hmacSHA256SigB64Len {
		return "", "", "", false
	}

	return headerB64, payloadB64, sigB64, true
}

func unixTimestamp(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, ErrInvalidCredentials
	}
	return n.Int64()
}
