package accountd

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime matches the session cookie lifetime.
const DefaultTokenLifetime = 24 * time.Hour

// ErrInvalidToken is the single failure outcome of Verify. Tampering, a
// wrong secret, a malformed token and natural expiry all collapse into it
// so callers cannot tell why a token was rejected.
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies the stateless session tokens. The signing
// secret is injected at construction and never read from ambient state, so
// tests can run with distinct secrets.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenIssuer creates a TokenIssuer signing with secret. A non-positive
// lifetime falls back to DefaultTokenLifetime.
func NewTokenIssuer(secret string, lifetime time.Duration) *TokenIssuer {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenIssuer{secret: []byte(secret), lifetime: lifetime}
}

// Lifetime returns the fixed token lifetime.
func (t *TokenIssuer) Lifetime() time.Duration { return t.lifetime }

// Issue mints a signed token binding subject and an expiry a fixed lifetime
// from now.
func (t *TokenIssuer) Issue(subject string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a presented token and returns
// its subject. Verification is purely in-process; no store is consulted.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
