package accountd

import (
	"net/http"
	"time"
)

// AuthCookieName is the well-known name of the session cookie.
const AuthCookieName = "auth_token"

// SessionCookie is the session carrier: it moves the signed token between
// client and server. Attributes are fixed by contract - http-only,
// SameSite=Strict, Secure in production - and the server never touches the
// cookie outside of a successful authentication or an explicit logout (no
// sliding expiry).
type SessionCookie struct {
	// Name defaults to AuthCookieName.
	Name string

	// Secure should be set in production deployments.
	Secure bool

	// MaxAge defaults to DefaultTokenLifetime.
	MaxAge time.Duration
}

func (c *SessionCookie) name() string {
	if c.Name == "" {
		return AuthCookieName
	}
	return c.Name
}

func (c *SessionCookie) maxAge() time.Duration {
	if c.MaxAge <= 0 {
		return DefaultTokenLifetime
	}
	return c.MaxAge
}

// Set writes the token into the response cookie.
func (c *SessionCookie) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.maxAge().Seconds()),
		Expires:  time.Now().Add(c.maxAge()),
	})
}

// Clear removes the cookie client-side. Since tokens are stateless this is
// all logout does; an already-issued token stays valid until expiry.
func (c *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// Read extracts the token from the request, or "" when absent.
func (c *SessionCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}
