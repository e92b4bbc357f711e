//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	ad "github.com/accountd-io/accountd"
)

// Kind constants for Datastore entities.
const (
	KindAccount = "Account"
	KindEmail   = "AccountEmail"
	KindSubject = "AccountSubject"
)

// accountEntity is the stored form of either account variant.
type accountEntity struct {
	Email        string    `datastore:"email"`
	FirstName    string    `datastore:"first_name"`
	LastName     string    `datastore:"last_name"`
	Provenance   string    `datastore:"provenance"`
	PasswordHash string    `datastore:"password_hash,noindex"`
	Provider     string    `datastore:"provider"`
	Subject      string    `datastore:"subject"`
	CreatedAt    time.Time `datastore:"created_at"`
	UpdatedAt    time.Time `datastore:"updated_at"`
}

// claimEntity reserves an email or subject for an account.
type claimEntity struct {
	AccountID string    `datastore:"account_id"`
	CreatedAt time.Time `datastore:"created_at"`
}

// AccountStore implements accountd.AccountStore using Cloud Datastore.
type AccountStore struct {
	client    *datastore.Client
	namespace string
}

// NewAccountStore creates a Datastore-backed AccountStore.
func NewAccountStore(client *datastore.Client, namespace string) *AccountStore {
	return &AccountStore{client: client, namespace: namespace}
}

func (s *AccountStore) key(kind, name string) *datastore.Key {
	k := datastore.NameKey(kind, name, nil)
	k.Namespace = s.namespace
	return k
}

func (s *AccountStore) emailKey(email string) *datastore.Key {
	return s.key(KindEmail, ad.NormalizeEmail(email))
}

func (s *AccountStore) subjectKey(provider, subject string) *datastore.Key {
	return s.key(KindSubject, provider+":"+subject)
}

func (e *accountEntity) toAccount(id string) ad.Account {
	if e.Provenance == string(ad.ProvenanceLocal) {
		return &ad.LocalAccount{
			AccountID:      id,
			EmailAddress:   e.Email,
			First:          e.FirstName,
			Last:           e.LastName,
			PasswordHash:   e.PasswordHash,
			LinkedProvider: e.Provider,
			LinkedSubject:  e.Subject,
		}
	}
	return &ad.FederatedAccount{
		AccountID:    id,
		EmailAddress: e.Email,
		First:        e.FirstName,
		Last:         e.LastName,
		Provider:     e.Provider,
		Subject:      e.Subject,
	}
}

// GetById returns the account stored under id.
func (s *AccountStore) GetById(ctx context.Context, id string) (ad.Account, error) {
	var entity accountEntity
	if err := s.client.Get(ctx, s.key(KindAccount, id), &entity); err != nil {
		return nil, translateNoSuchEntity(err)
	}
	return entity.toAccount(id), nil
}

// GetByEmail resolves the email claim, then loads the account.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (ad.Account, error) {
	var claim claimEntity
	if err := s.client.Get(ctx, s.emailKey(email), &claim); err != nil {
		return nil, translateNoSuchEntity(err)
	}
	return s.GetById(ctx, claim.AccountID)
}

// GetBySubject resolves the subject claim, then loads the account.
func (s *AccountStore) GetBySubject(ctx context.Context, provider, subject string) (ad.Account, error) {
	var claim claimEntity
	if err := s.client.Get(ctx, s.subjectKey(provider, subject), &claim); err != nil {
		return nil, translateNoSuchEntity(err)
	}
	return s.GetById(ctx, claim.AccountID)
}

// CreateLocal persists a password account, claiming its email inside a
// transaction.
func (s *AccountStore) CreateLocal(ctx context.Context, acct *ad.LocalAccount) error {
	now := time.Now()
	entity := &accountEntity{
		Email:        ad.NormalizeEmail(acct.EmailAddress),
		FirstName:    acct.First,
		LastName:     acct.Last,
		Provenance:   string(ad.ProvenanceLocal),
		PasswordHash: acct.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		emailKey := s.emailKey(acct.EmailAddress)
		if err := tx.Get(emailKey, &claimEntity{}); err == nil {
			return ad.ErrEmailTaken
		} else if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		if _, err := tx.Put(emailKey, &claimEntity{AccountID: acct.AccountID, CreatedAt: now}); err != nil {
			return err
		}
		_, err := tx.Put(s.key(KindAccount, acct.AccountID), entity)
		return err
	})
	return err
}

// CreateFederated persists a federated account, claiming its email and
// subject inside one transaction.
func (s *AccountStore) CreateFederated(ctx context.Context, acct *ad.FederatedAccount) error {
	now := time.Now()
	entity := &accountEntity{
		Email:      ad.NormalizeEmail(acct.EmailAddress),
		FirstName:  acct.First,
		LastName:   acct.Last,
		Provenance: string(acct.Provenance()),
		Provider:   acct.Provider,
		Subject:    acct.Subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		subjectKey := s.subjectKey(acct.Provider, acct.Subject)
		if err := tx.Get(subjectKey, &claimEntity{}); err == nil {
			return ad.ErrSubjectTaken
		} else if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		emailKey := s.emailKey(acct.EmailAddress)
		if err := tx.Get(emailKey, &claimEntity{}); err == nil {
			return ad.ErrEmailTaken
		} else if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		claim := &claimEntity{AccountID: acct.AccountID, CreatedAt: now}
		if _, err := tx.Put(subjectKey, claim); err != nil {
			return err
		}
		if _, err := tx.Put(emailKey, claim); err != nil {
			return err
		}
		_, err := tx.Put(s.key(KindAccount, acct.AccountID), entity)
		return err
	})
	return err
}

// LinkSubject attaches a federated subject to an existing local account.
func (s *AccountStore) LinkSubject(ctx context.Context, accountID, provider, subject string) error {
	now := time.Now()
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		subjectKey := s.subjectKey(provider, subject)
		if err := tx.Get(subjectKey, &claimEntity{}); err == nil {
			return ad.ErrSubjectTaken
		} else if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}

		accountKey := s.key(KindAccount, accountID)
		var entity accountEntity
		if err := tx.Get(accountKey, &entity); err != nil {
			return translateNoSuchEntity(err)
		}
		if entity.Provenance != string(ad.ProvenanceLocal) {
			return fmt.Errorf("account %s is not a local account", accountID)
		}
		entity.Provider = provider
		entity.Subject = subject
		entity.UpdatedAt = now

		if _, err := tx.Put(subjectKey, &claimEntity{AccountID: accountID, CreatedAt: now}); err != nil {
			return err
		}
		_, err := tx.Put(accountKey, &entity)
		return err
	})
	return err
}

// ListAccounts returns up to limit account ids, for maintenance tooling.
func (s *AccountStore) ListAccounts(ctx context.Context, limit int) ([]ad.Account, error) {
	q := datastore.NewQuery(KindAccount).Namespace(s.namespace).Limit(limit)
	it := s.client.Run(ctx, q)

	var out []ad.Account
	for {
		var entity accountEntity
		key, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity.toAccount(key.Name))
	}
	return out, nil
}

func translateNoSuchEntity(err error) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return ad.ErrAccountNotFound
	}
	return err
}
