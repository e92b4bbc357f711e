// Package stores provides a filesystem-backed AccountStore. Accounts are
// JSON files keyed by id, with email and subject index files pointing back
// at them. It suits tests and single-node deployments; larger deployments
// use the gorm or gae subpackages.
package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	ad "github.com/accountd-io/accountd"
)

// fsAccount is the on-disk envelope for either account variant.
type fsAccount struct {
	Provenance ad.Provenance        `json:"provenance"`
	Local      *ad.LocalAccount     `json:"local,omitempty"`
	Federated  *ad.FederatedAccount `json:"federated,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func (f *fsAccount) account() (ad.Account, error) {
	switch {
	case f.Local != nil:
		return f.Local, nil
	case f.Federated != nil:
		return f.Federated, nil
	}
	return nil, fmt.Errorf("account record has no variant payload")
}

// FSAccountStore stores accounts as JSON files under StoragePath.
type FSAccountStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSAccountStore(storagePath string) *FSAccountStore {
	return &FSAccountStore{StoragePath: storagePath}
}

func (s *FSAccountStore) accountPath(id string) string {
	return filepath.Join(s.StoragePath, "accounts", id+".json")
}

// Index file names hash the key so emails and subjects never hit filesystem
// naming rules.
func (s *FSAccountStore) indexPath(kind, key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.StoragePath, kind, hex.EncodeToString(sum[:])+".json")
}

func (s *FSAccountStore) emailPath(email string) string {
	return s.indexPath("emails", ad.NormalizeEmail(email))
}

func (s *FSAccountStore) subjectPath(provider, subject string) string {
	return s.indexPath("subjects", provider+":"+subject)
}

// GetById returns the account stored under id.
func (s *FSAccountStore) GetById(_ context.Context, id string) (ad.Account, error) {
	return s.readAccount(s.accountPath(id))
}

// GetByEmail resolves the email index, then loads the account.
func (s *FSAccountStore) GetByEmail(_ context.Context, email string) (ad.Account, error) {
	id, err := s.readIndex(s.emailPath(email))
	if err != nil {
		return nil, err
	}
	return s.readAccount(s.accountPath(id))
}

// GetBySubject resolves the provider subject index, then loads the account.
func (s *FSAccountStore) GetBySubject(_ context.Context, provider, subject string) (ad.Account, error) {
	id, err := s.readIndex(s.subjectPath(provider, subject))
	if err != nil {
		return nil, err
	}
	return s.readAccount(s.accountPath(id))
}

// CreateLocal persists a password account, claiming its email.
func (s *FSAccountStore) CreateLocal(_ context.Context, acct *ad.LocalAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(s.emailPath(acct.EmailAddress)) {
		return ad.ErrEmailTaken
	}
	now := time.Now()
	rec := &fsAccount{Provenance: ad.ProvenanceLocal, Local: acct, CreatedAt: now, UpdatedAt: now}
	if err := s.writeAccount(acct.AccountID, rec); err != nil {
		return err
	}
	return s.writeIndex(s.emailPath(acct.EmailAddress), acct.AccountID)
}

// CreateFederated persists a federated account, claiming its email and
// subject.
func (s *FSAccountStore) CreateFederated(_ context.Context, acct *ad.FederatedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(s.subjectPath(acct.Provider, acct.Subject)) {
		return ad.ErrSubjectTaken
	}
	if s.exists(s.emailPath(acct.EmailAddress)) {
		return ad.ErrEmailTaken
	}
	now := time.Now()
	rec := &fsAccount{Provenance: acct.Provenance(), Federated: acct, CreatedAt: now, UpdatedAt: now}
	if err := s.writeAccount(acct.AccountID, rec); err != nil {
		return err
	}
	if err := s.writeIndex(s.emailPath(acct.EmailAddress), acct.AccountID); err != nil {
		return err
	}
	return s.writeIndex(s.subjectPath(acct.Provider, acct.Subject), acct.AccountID)
}

// LinkSubject attaches a federated subject to an existing local account.
func (s *FSAccountStore) LinkSubject(_ context.Context, accountID, provider, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(s.subjectPath(provider, subject)) {
		return ad.ErrSubjectTaken
	}

	path := s.accountPath(accountID)
	rec, err := s.readRecord(path)
	if err != nil {
		return err
	}
	if rec.Local == nil {
		return fmt.Errorf("account %s is not a local account", accountID)
	}
	rec.Local.LinkedProvider = provider
	rec.Local.LinkedSubject = subject
	rec.UpdatedAt = time.Now()
	if err := s.writeAccount(accountID, rec); err != nil {
		return err
	}
	return s.writeIndex(s.subjectPath(provider, subject), accountID)
}

func (s *FSAccountStore) exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *FSAccountStore) readRecord(path string) (*fsAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ad.ErrAccountNotFound
		}
		return nil, err
	}
	var rec fsAccount
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FSAccountStore) readAccount(path string) (ad.Account, error) {
	rec, err := s.readRecord(path)
	if err != nil {
		return nil, err
	}
	return rec.account()
}

func (s *FSAccountStore) writeAccount(id string, rec *fsAccount) error {
	path := s.accountPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

type indexEntry struct {
	AccountID string `json:"account_id"`
}

func (s *FSAccountStore) readIndex(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ad.ErrAccountNotFound
		}
		return "", err
	}
	var entry indexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", err
	}
	return entry.AccountID, nil
}

func (s *FSAccountStore) writeIndex(path, accountID string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(indexEntry{AccountID: accountID})
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
