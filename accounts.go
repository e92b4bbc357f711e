package accountd

import (
	"context"
	"strings"
)

// Provenance tags how an account came to exist. It is immutable after
// creation - a password account never becomes a federated one.
type Provenance string

const (
	ProvenanceLocal  Provenance = "local"
	ProvenanceGoogle Provenance = "google"
)

// Account is the durable identity record. Concrete types are a variant over
// provenance: LocalAccount carries the password hash, FederatedAccount the
// provider subject. Email is unique across both variants.
type Account interface {
	Id() string
	Email() string
	FirstName() string
	LastName() string
	Provenance() Provenance
}

// LocalAccount is an account registered with an email and password.
type LocalAccount struct {
	AccountID    string `json:"account_id"`
	EmailAddress string `json:"email"`
	First        string `json:"first_name"`
	Last         string `json:"last_name"`
	PasswordHash string `json:"password_hash"`

	// Set when a federated login was explicitly linked to this account
	// (ConflictLink policy). Provenance stays local.
	LinkedProvider string `json:"linked_provider,omitempty"`
	LinkedSubject  string `json:"linked_subject,omitempty"`
}

func (a *LocalAccount) Id() string             { return a.AccountID }
func (a *LocalAccount) Email() string          { return a.EmailAddress }
func (a *LocalAccount) FirstName() string      { return a.First }
func (a *LocalAccount) LastName() string       { return a.Last }
func (a *LocalAccount) Provenance() Provenance { return ProvenanceLocal }

// FederatedAccount is an account created from a federated identity
// assertion. It has no password; the provider subject is its key.
type FederatedAccount struct {
	AccountID    string `json:"account_id"`
	EmailAddress string `json:"email"`
	First        string `json:"first_name"`
	Last         string `json:"last_name"`
	Provider     string `json:"provider"`
	Subject      string `json:"subject"`
}

func (a *FederatedAccount) Id() string             { return a.AccountID }
func (a *FederatedAccount) Email() string          { return a.EmailAddress }
func (a *FederatedAccount) FirstName() string      { return a.First }
func (a *FederatedAccount) LastName() string       { return a.Last }
func (a *FederatedAccount) Provenance() Provenance { return Provenance(a.Provider) }

// AccountStore is the identity store contract. Implementations must enforce
// email uniqueness (case-insensitive) and subject uniqueness, and are
// presumed safe for concurrent use.
type AccountStore interface {
	// GetByEmail returns the account for an email, or ErrAccountNotFound.
	GetByEmail(ctx context.Context, email string) (Account, error)

	// GetBySubject returns the account owning a federated subject, or
	// ErrAccountNotFound. Linked local accounts resolve here too.
	GetBySubject(ctx context.Context, provider, subject string) (Account, error)

	// GetById returns the account for an id, or ErrAccountNotFound.
	GetById(ctx context.Context, id string) (Account, error)

	// CreateLocal persists a new password account. Returns ErrEmailTaken
	// if the email is already registered.
	CreateLocal(ctx context.Context, acct *LocalAccount) error

	// CreateFederated persists a new federated account. Returns
	// ErrEmailTaken or ErrSubjectTaken on a uniqueness violation.
	CreateFederated(ctx context.Context, acct *FederatedAccount) error

	// LinkSubject attaches a federated subject to an existing local
	// account. Only used under the ConflictLink policy.
	LinkSubject(ctx context.Context, accountID, provider, subject string) error
}

// NormalizeEmail lowercases and trims an email so lookups and uniqueness
// checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
