package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider drives the three-leg handshake against Google. The
// back-channel exchange and the userinfo fetch are bounded by
// ExchangeTimeout so a provider outage surfaces as a failure redirect,
// never a hang.
type GoogleProvider struct {
	// Config holds the client credentials and endpoints. Tests point the
	// endpoints at a fake provider.
	Config *oauth2.Config

	// UserInfoURL defaults to Google's v2 userinfo endpoint.
	UserInfoURL string

	// FailureURL is where the browser lands when any leg fails. No
	// carrier is ever set on that path.
	FailureURL string

	// HandleIdentity completes the handshake: resolution and issuance.
	HandleIdentity HandleIdentityFunc

	// ExchangeTimeout bounds the back-channel calls. Defaults to 10s.
	ExchangeTimeout time.Duration

	Logger *slog.Logger
}

// NewGoogleProvider creates a provider for the given client credentials.
// Empty arguments fall back to the OAUTH2_GOOGLE_* environment variables.
func NewGoogleProvider(clientID, clientSecret, callbackURL string, handleIdentity HandleIdentityFunc) *GoogleProvider {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackURL == "" {
		callbackURL = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}
	return &GoogleProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		HandleIdentity: handleIdentity,
	}
}

func (g *GoogleProvider) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (g *GoogleProvider) failureURL() string {
	if g.FailureURL == "" {
		return "/auth/google/fail"
	}
	return g.FailureURL
}

func (g *GoogleProvider) exchangeTimeout() time.Duration {
	if g.ExchangeTimeout <= 0 {
		return 10 * time.Second
	}
	return g.ExchangeTimeout
}

// RedirectHandler serves the initial leg.
func (g *GoogleProvider) RedirectHandler() http.HandlerFunc {
	return OauthRedirector(g.Config)
}

// CallbackHandler serves the provider's return leg: check the state nonce,
// exchange the grant, fetch the identity assertion and hand it off. Any
// failure here is terminal for the handshake and redirects to the failure
// destination.
func (g *GoogleProvider) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateCookie, _ := r.Cookie(stateCookieName)
		clearStateCookie(w)
		if stateCookie == nil || r.FormValue("state") != stateCookie.Value {
			g.logger().Warn("oauth state mismatch", "provider", "google")
			g.fail(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.exchangeTimeout())
		defer cancel()

		token, err := g.Config.Exchange(ctx, r.FormValue("code"))
		if err != nil {
			g.logger().Warn("code exchange failed", "provider", "google", "error", err)
			g.fail(w, r)
			return
		}

		identity, err := g.fetchIdentity(ctx, token)
		if err != nil {
			g.logger().Warn("userinfo fetch failed", "provider", "google", "error", err)
			g.fail(w, r)
			return
		}

		g.HandleIdentity(identity, token, w, r)
	}
}

func (g *GoogleProvider) fail(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, g.failureURL(), http.StatusFound)
}

type googleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}

// fetchIdentity pulls the user's profile from the userinfo endpoint using
// the exchanged access token.
func (g *GoogleProvider) fetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	infoURL := g.UserInfoURL
	if infoURL == "" {
		infoURL = defaultUserInfoURL
	}

	client := g.Config.Client(ctx, token)
	resp, err := client.Get(infoURL)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading userinfo response: %w", err)
	}
	var info googleUserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed decoding userinfo response: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("userinfo response missing subject")
	}

	return &Identity{
		Provider:  "google",
		Subject:   info.ID,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}
