package accountd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-1", time.Minute)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", subject)
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-1", time.Millisecond)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenTampering(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-1", time.Hour)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-1", time.Hour)
	other := NewTokenIssuer("test-secret-2", time.Hour)

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMalformed(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-1", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c", "ey.ey.ey"} {
		_, err := issuer.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestTokenLifetimeFallback(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-1", 0)
	assert.Equal(t, DefaultTokenLifetime, issuer.Lifetime())
}
