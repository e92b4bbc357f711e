// Package accountd implements the account and session core of an end-user
// account service: local registration and login, Google sign-in, and session
// continuity through a signed token carried in a cookie.
//
// # Architecture
//
// Account: the durable identity record. Accounts are a variant over their
// provenance - a LocalAccount carries a password hash, a FederatedAccount
// carries the provider subject identifier. Email is unique across both.
//
// Session token: a stateless HS256 JWT binding the account id and an expiry.
// Validity is purely a function of signature and expiry; there is no
// server-side session table and no revocation before expiry. Logout only
// clears the client cookie.
//
// Session carrier: the "auth_token" cookie. Http-only, SameSite=Strict,
// Secure in production, 24 hour lifetime.
//
// # Basic Usage
//
// Wire a store, the crypto primitives, and the HTTP surface:
//
//	store := stores.NewFSAccountStore("/path/to/storage")
//	svc := &accountd.Service{
//	    Store:  store,
//	    Hasher: accountd.NewHasher(0),
//	    Issuer: accountd.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour),
//	    Cookie: &accountd.SessionCookie{Secure: true},
//	}
//	http.ListenAndServe(":8080", svc.Handler())
//
// Google sign-in is optional; attach a provider from the oauth2 subpackage
// and the service mounts /auth/google and /auth/google/callback.
//
// Protected routes outside this package can reuse the same gate:
//
//	guard := &accountd.Middleware{Cookie: svc.Cookie, Verify: svc.Issuer.Verify}
//	mux.Handle("/me", guard.RequireUser(meHandler))
package accountd
