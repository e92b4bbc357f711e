//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-backed AccountStore. Uniqueness is enforced
// twice: a pre-check inside a transaction for clean sentinel errors, and
// the unique indexes themselves for races the pre-check cannot see.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	ad "github.com/accountd-io/accountd"
)

// AccountStore implements accountd.AccountStore using GORM.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// GetById returns the account with the given id.
func (s *AccountStore) GetById(ctx context.Context, id string) (ad.Account, error) {
	var model AccountModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.toAccount(), nil
}

// GetByEmail returns the account registered under email, regardless of
// provenance.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (ad.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", ad.NormalizeEmail(email)).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return model.toAccount(), nil
}

// GetBySubject returns the account owning a federated subject. Local
// accounts with a linked subject resolve here too.
func (s *AccountStore) GetBySubject(ctx context.Context, provider, subject string) (ad.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "provider = ? AND subject = ?", provider, subject).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return model.toAccount(), nil
}

// CreateLocal persists a new password account.
func (s *AccountStore) CreateLocal(ctx context.Context, acct *ad.LocalAccount) error {
	model := &AccountModel{
		ID:           acct.AccountID,
		Email:        ad.NormalizeEmail(acct.EmailAddress),
		FirstName:    acct.First,
		LastName:     acct.Last,
		Provenance:   string(ad.ProvenanceLocal),
		PasswordHash: acct.PasswordHash,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AccountModel{}).Where("email = ?", model.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ad.ErrEmailTaken
		}
		if err := tx.Create(model).Error; err != nil {
			return translateDuplicate(err, ad.ErrEmailTaken)
		}
		return nil
	})
}

// CreateFederated persists a new federated account.
func (s *AccountStore) CreateFederated(ctx context.Context, acct *ad.FederatedAccount) error {
	subject := acct.Subject
	model := &AccountModel{
		ID:         acct.AccountID,
		Email:      ad.NormalizeEmail(acct.EmailAddress),
		FirstName:  acct.First,
		LastName:   acct.Last,
		Provenance: string(acct.Provenance()),
		Provider:   acct.Provider,
		Subject:    &subject,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AccountModel{}).Where("provider = ? AND subject = ?", acct.Provider, acct.Subject).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ad.ErrSubjectTaken
		}
		if err := tx.Model(&AccountModel{}).Where("email = ?", model.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ad.ErrEmailTaken
		}
		if err := tx.Create(model).Error; err != nil {
			return translateDuplicate(err, ad.ErrSubjectTaken)
		}
		return nil
	})
}

// LinkSubject attaches a federated subject to an existing local account.
func (s *AccountStore) LinkSubject(ctx context.Context, accountID, provider, subject string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AccountModel{}).Where("provider = ? AND subject = ?", provider, subject).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ad.ErrSubjectTaken
		}

		var model AccountModel
		if err := tx.First(&model, "id = ?", accountID).Error; err != nil {
			return translateNotFound(err)
		}
		if model.Provenance != string(ad.ProvenanceLocal) {
			return fmt.Errorf("account %s is not a local account", accountID)
		}

		updates := map[string]any{"provider": provider, "subject": subject}
		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return translateDuplicate(err, ad.ErrSubjectTaken)
		}
		return nil
	})
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ad.ErrAccountNotFound
	}
	return err
}

// translateDuplicate maps driver-level unique violations onto the store
// sentinels. Drivers word these differently, so match loosely.
func translateDuplicate(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sentinel
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		return sentinel
	}
	return err
}
