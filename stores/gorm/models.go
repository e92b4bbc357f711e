//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	"gorm.io/gorm"

	ad "github.com/accountd-io/accountd"
)

// AccountModel is the GORM table backing both account variants. Subject is
// a pointer so rows without one stay out of the unique index (NULLs are
// distinct), matching the sparse-unique constraint on federated subjects.
type AccountModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Email        string  `gorm:"uniqueIndex;size:255;not null"`
	FirstName    string  `gorm:"size:64"`
	LastName     string  `gorm:"size:64"`
	Provenance   string  `gorm:"size:16;not null"`
	PasswordHash string  `gorm:"size:128"`
	Provider     string  `gorm:"size:32"`
	Subject      *string `gorm:"uniqueIndex;size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AccountModel) TableName() string { return "accounts" }

// AutoMigrate runs database migrations for the account tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&AccountModel{})
}

// toAccount rehydrates the variant from a row.
func (m *AccountModel) toAccount() ad.Account {
	if m.Provenance == string(ad.ProvenanceLocal) {
		acct := &ad.LocalAccount{
			AccountID:      m.ID,
			EmailAddress:   m.Email,
			First:          m.FirstName,
			Last:           m.LastName,
			PasswordHash:   m.PasswordHash,
			LinkedProvider: m.Provider,
		}
		if m.Subject != nil {
			acct.LinkedSubject = *m.Subject
		}
		return acct
	}
	acct := &ad.FederatedAccount{
		AccountID:    m.ID,
		EmailAddress: m.Email,
		First:        m.FirstName,
		Last:         m.LastName,
		Provider:     m.Provider,
	}
	if m.Subject != nil {
		acct.Subject = *m.Subject
	}
	return acct
}
