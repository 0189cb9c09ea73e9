package auth

import (
	"errors"
	"time"
)

// ErrInvalidToken covers every token verification failure surfaced to callers.
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies access tokens for authenticated users.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds a token issuer from the configured secret and lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs an access token for the given user id.
func (i *Issuer) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := map[string]any{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	return SignHS256(claims, i.secret)
}

// Verify checks the token signature and expiry and returns the user id.
func (i *Issuer) Verify(token string) (int64, error) {
	claims, err := ParseAndVerifyHS256(token, i.secret)
	if err != nil {
		return 0, ErrInvalidToken
	}
	exp, ok := claims["exp"].(float64)
	if !ok || time.Now().Unix() >= int64(exp) {
		return 0, ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, ErrInvalidToken
	}
	return int64(sub), nil
}
