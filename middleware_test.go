package accountd

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireUser(t *testing.T) {
	issuer := NewTokenIssuer("guard-secret", time.Minute)
	guard := &Middleware{Verify: issuer.Verify}

	var seenUserID string
	handler := guard.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserID(r)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("no cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "garbage"})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := issuer.Issue("user-42")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-42", seenUserID)
	})

	t.Run("verifier error rejects", func(t *testing.T) {
		failing := &Middleware{Verify: func(string) (string, error) {
			return "", errors.New("boom")
		}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "anything"})
		rr := httptest.NewRecorder()
		failing.RequireUser(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler should not run")
		})).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestUserIDOutsideGuard(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", UserID(req))
}

func TestSessionCookieAttributes(t *testing.T) {
	cookie := &SessionCookie{Secure: true}
	rr := httptest.NewRecorder()
	cookie.Set(rr, "tok")

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, AuthCookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, int(DefaultTokenLifetime.Seconds()), c.MaxAge)

	rr = httptest.NewRecorder()
	cookie.Clear(rr)
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}
