// Package oauth2 implements the federated leg of the account service: the
// redirect/callback handshake with an external identity provider. The
// handshake produces an Identity assertion; resolving it against the
// account store and issuing the session is the caller's job, passed in as
// a HandleIdentityFunc.
package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Identity is the provider's assertion about the authenticated user, as
// much of it as the account core needs.
type Identity struct {
	Provider  string
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// HandleIdentityFunc receives a verified identity assertion at the end of a
// successful handshake. Implementations resolve or create the local
// account, set the session carrier and redirect.
type HandleIdentityFunc func(identity *Identity, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

const stateCookieName = "oauthstate"

// generateStateCookie creates the CSRF state nonce for the redirect leg and
// stores it in a short-lived cookie for the callback to check against.
func generateStateCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   300,
		Expires:  time.Now().Add(5 * time.Minute),
	})
	return state
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// OauthRedirector returns the handler for the initial leg: set the state
// cookie and send the browser to the provider's authorization endpoint.
func OauthRedirector(config *oauth2.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := generateStateCookie(w)
		http.Redirect(w, r, config.AuthCodeURL(state), http.StatusFound)
	}
}
