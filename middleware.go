package accountd

import (
	"context"
	"log/slog"
	"net/http"
)

type userIdKey struct{}

// Middleware is the request guard for protected routes. It extracts the
// session cookie, verifies the token in-process and injects the subject
// into the request context. It never consults the account store and never
// mutates the carrier, which keeps the gate cheap and horizontally
// scalable.
type Middleware struct {
	// Cookie defaults to the standard session cookie.
	Cookie *SessionCookie

	// Verify checks a presented token and returns its subject.
	// Typically TokenIssuer.Verify.
	Verify func(tokenString string) (subject string, err error)
}

func (m *Middleware) cookie() *SessionCookie {
	if m.Cookie == nil {
		return &SessionCookie{}
	}
	return m.Cookie
}

// RequireUser gates next behind a valid session token. Requests without a
// cookie, or with a token that fails verification for any reason, get a 401
// with no further detail.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.cookie().Read(r)
		if token == "" {
			writeUnauthorized(w)
			return
		}
		if m.Verify == nil {
			slog.Warn("no token verifier configured on auth middleware")
			writeUnauthorized(w)
			return
		}
		subject, err := m.Verify(token)
		if err != nil || subject == "" {
			writeUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), userIdKey{}, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated account id injected by RequireUser, or
// "" on unguarded requests.
func UserID(r *http.Request) string {
	v, _ := r.Context().Value(userIdKey{}).(string)
	return v
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
}
