package accountd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// User-facing messages, kept stable because clients key off them.
const (
	msgRegistered    = "User registered successfully"
	msgLoggedIn      = "User Logged In Successfully"
	msgLoggedOut     = "User logged out successfully"
	msgEmailInUse    = "Email is already in use. Please choose another one."
	msgEmailNotFound = "Email not found"
	msgBadPassword   = "Invalid password"
	msgServerError   = "Something went wrong. Please try again."
)

// LocalAuth orchestrates the password path: registration and login against
// the account store, plus the session endpoints that belong to it. Every
// error is translated at this boundary; nothing escapes as a raw fault.
type LocalAuth struct {
	Store  AccountStore
	Hasher *Hasher
	Issuer *TokenIssuer
	Cookie *SessionCookie
	Logger *slog.Logger
}

func (a *LocalAuth) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister processes POST /register: validate, conflict-check, hash,
// create, issue. Password material is never echoed back.
func (a *LocalAuth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request body"})
		return
	}

	values := map[string]string{
		"firstName": strings.TrimSpace(req.FirstName),
		"lastName":  strings.TrimSpace(req.LastName),
		"email":     strings.TrimSpace(req.Email),
		"password":  strings.TrimSpace(req.Password),
	}
	if fieldErrs := RunRules(values, RegistrationRules()); len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": fieldErrs})
		return
	}

	email := NormalizeEmail(values["email"])
	_, err := a.Store.GetByEmail(r.Context(), email)
	if err == nil {
		writeJSON(w, http.StatusConflict, map[string]any{"message": msgEmailInUse})
		return
	}
	if !errors.Is(err, ErrAccountNotFound) {
		a.logger().Error("registration lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": msgServerError})
		return
	}

	hash, err := a.Hasher.Hash(values["password"])
	if err != nil {
		a.logger().Error("password hashing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": msgServerError})
		return
	}

	acct := &LocalAccount{
		AccountID:    uuid.NewString(),
		EmailAddress: email,
		First:        values["firstName"],
		Last:         values["lastName"],
		PasswordHash: hash,
	}
	if err := a.Store.CreateLocal(r.Context(), acct); err != nil {
		// A concurrent registration can win the race between lookup and create.
		if errors.Is(err, ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, map[string]any{"message": msgEmailInUse})
			return
		}
		a.logger().Error("account create failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": msgServerError})
		return
	}

	if !a.issueSession(w, acct.AccountID) {
		return
	}
	a.logger().Info("account registered", "accountId", acct.AccountID, "provenance", ProvenanceLocal)
	writeJSON(w, http.StatusCreated, map[string]any{"message": msgRegistered})
}

// HandleLogin processes POST /login. An unknown email and a wrong password
// are reported with distinct messages, matching the registration-era
// behavior clients already depend on.
func (a *LocalAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request body"})
		return
	}

	values := map[string]string{
		"email":    strings.TrimSpace(req.Email),
		"password": strings.TrimSpace(req.Password),
	}
	if fieldErrs := RunRules(values, LoginRules()); len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": fieldErrs})
		return
	}

	acct, err := a.Store.GetByEmail(r.Context(), NormalizeEmail(values["email"]))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgEmailNotFound})
			return
		}
		a.logger().Error("login lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": msgServerError})
		return
	}

	// Federated accounts have no password; they fail the same way a wrong
	// password does.
	local, ok := acct.(*LocalAccount)
	if !ok || !a.Hasher.Verify(values["password"], local.PasswordHash) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgBadPassword})
		return
	}

	if !a.issueSession(w, acct.Id()) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": acct.Id(), "message": msgLoggedIn})
}

// HandleValidateToken answers GET /validate-token. It runs behind
// Middleware.RequireUser, so the subject is already resolved.
func (a *LocalAuth) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"userId": UserID(r)})
}

// HandleLogout clears the session cookie unconditionally.
func (a *LocalAuth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.Cookie.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"message": msgLoggedOut})
}

func (a *LocalAuth) issueSession(w http.ResponseWriter, accountID string) bool {
	token, err := a.Issuer.Issue(accountID)
	if err != nil {
		a.logger().Error("token issuance failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": msgServerError})
		return false
	}
	a.Cookie.Set(w, token)
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("error encoding response", "error", err)
	}
}
