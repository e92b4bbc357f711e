package accountd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	xoauth2 "golang.org/x/oauth2"

	oa2 "github.com/accountd-io/accountd/oauth2"
)

// ConflictPolicy decides what happens when a federated login presents an
// email already owned by a local password account. There is no safe silent
// default, so the policy is an explicit configuration choice.
type ConflictPolicy int

const (
	// ConflictReject refuses the federated login and sends the browser to
	// the failure destination. This is the default.
	ConflictReject ConflictPolicy = iota

	// ConflictLink attaches the federated subject to the existing local
	// account on first federated login. Provenance stays local.
	ConflictLink
)

// Service wires the auth core into its HTTP surface.
type Service struct {
	Store  AccountStore
	Hasher *Hasher
	Issuer *TokenIssuer
	Cookie *SessionCookie

	// Google enables the federated path when set. The service installs
	// itself as the provider's identity handler.
	Google *oa2.GoogleProvider

	// ConflictPolicy governs federated logins colliding with local
	// accounts by email.
	ConflictPolicy ConflictPolicy

	// PostLoginURL is where the browser lands after a successful
	// federated login. Defaults to "/".
	PostLoginURL string

	Logger *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) postLoginURL() string {
	if s.PostLoginURL == "" {
		return "/"
	}
	return s.PostLoginURL
}

func (s *Service) failureURL() string {
	if s.Google != nil && s.Google.FailureURL != "" {
		return s.Google.FailureURL
	}
	return "/auth/google/fail"
}

// Handler builds the router: the four local/session endpoints and, when a
// Google provider is configured, the two federated legs.
func (s *Service) Handler() http.Handler {
	local := &LocalAuth{
		Store:  s.Store,
		Hasher: s.Hasher,
		Issuer: s.Issuer,
		Cookie: s.Cookie,
		Logger: s.Logger,
	}
	guard := &Middleware{Cookie: s.Cookie, Verify: s.Issuer.Verify}

	r := mux.NewRouter()
	r.HandleFunc("/register", local.HandleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", local.HandleLogin).Methods(http.MethodPost)
	r.Handle("/validate-token", guard.RequireUser(http.HandlerFunc(local.HandleValidateToken))).Methods(http.MethodGet)
	r.HandleFunc("/logout", local.HandleLogout).Methods(http.MethodPost)

	if s.Google != nil {
		if s.Google.HandleIdentity == nil {
			s.Google.HandleIdentity = s.handleFederatedIdentity
		}
		r.HandleFunc("/auth/google", s.Google.RedirectHandler()).Methods(http.MethodGet)
		r.HandleFunc("/auth/google/callback", s.Google.CallbackHandler()).Methods(http.MethodGet)
	}
	return r
}

// handleFederatedIdentity is the resolution and issuance leg of the
// federated flow: a verified provider assertion becomes a local session.
func (s *Service) handleFederatedIdentity(identity *oa2.Identity, _ *xoauth2.Token, w http.ResponseWriter, r *http.Request) {
	acct, err := s.resolveFederated(r.Context(), identity)
	if err != nil {
		if errors.Is(err, ErrProvenanceConflict) {
			s.logger().Warn("federated login rejected", "provider", identity.Provider, "reason", "email belongs to a local account")
		} else {
			s.logger().Error("federated resolution failed", "provider", identity.Provider, "error", err)
		}
		http.Redirect(w, r, s.failureURL(), http.StatusFound)
		return
	}

	token, err := s.Issuer.Issue(acct.Id())
	if err != nil {
		s.logger().Error("token issuance failed", "error", err)
		http.Redirect(w, r, s.failureURL(), http.StatusFound)
		return
	}
	s.Cookie.Set(w, token)
	http.Redirect(w, r, s.postLoginURL(), http.StatusFound)
}

// resolveFederated maps a provider assertion to exactly one account:
// by subject first, then by email under the conflict policy, then a fresh
// federated account. Replaying the same assertion never creates a
// duplicate.
func (s *Service) resolveFederated(ctx context.Context, identity *oa2.Identity) (Account, error) {
	acct, err := s.Store.GetBySubject(ctx, identity.Provider, identity.Subject)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	email := NormalizeEmail(identity.Email)
	existing, err := s.Store.GetByEmail(ctx, email)
	if err == nil {
		if s.ConflictPolicy != ConflictLink {
			return nil, ErrProvenanceConflict
		}
		if err := s.Store.LinkSubject(ctx, existing.Id(), identity.Provider, identity.Subject); err != nil {
			return nil, err
		}
		s.logger().Info("linked federated subject to local account", "accountId", existing.Id(), "provider", identity.Provider)
		return existing, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	fed := &FederatedAccount{
		AccountID:    uuid.NewString(),
		EmailAddress: email,
		First:        identity.FirstName,
		Last:         identity.LastName,
		Provider:     identity.Provider,
		Subject:      identity.Subject,
	}
	if err := s.Store.CreateFederated(ctx, fed); err != nil {
		// A concurrent callback may have created it; resolve once more.
		if errors.Is(err, ErrSubjectTaken) {
			return s.Store.GetBySubject(ctx, identity.Provider, identity.Subject)
		}
		return nil, err
	}
	s.logger().Info("account created from federated login", "accountId", fed.AccountID, "provider", identity.Provider)
	return fed, nil
}
