//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ad "github.com/accountd-io/accountd"
)

func newTestStore(t *testing.T) *AccountStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "accounts.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return NewAccountStore(db)
}

func TestGormStoreLocalRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	acct := &ad.LocalAccount{
		AccountID:    "id-1",
		EmailAddress: "Ann@Example.com",
		First:        "Ann",
		Last:         "Lee",
		PasswordHash: "hash",
	}
	require.NoError(t, store.CreateLocal(ctx, acct))

	byEmail, err := store.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", byEmail.Id())
	assert.Equal(t, ad.ProvenanceLocal, byEmail.Provenance())

	// Email is stored normalized.
	assert.Equal(t, "ann@example.com", byEmail.Email())

	byId, err := store.GetById(ctx, "id-1")
	require.NoError(t, err)
	local, ok := byId.(*ad.LocalAccount)
	require.True(t, ok)
	assert.Equal(t, "hash", local.PasswordHash)
}

func TestGormStoreEmailTaken(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateLocal(ctx, &ad.LocalAccount{AccountID: "id-1", EmailAddress: "ann@example.com"}))
	err := store.CreateLocal(ctx, &ad.LocalAccount{AccountID: "id-2", EmailAddress: "ann@example.com"})
	assert.ErrorIs(t, err, ad.ErrEmailTaken)

	err = store.CreateFederated(ctx, &ad.FederatedAccount{
		AccountID: "id-3", EmailAddress: "ann@example.com", Provider: "google", Subject: "sub-1",
	})
	assert.ErrorIs(t, err, ad.ErrEmailTaken)
}

func TestGormStoreFederatedRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateFederated(ctx, &ad.FederatedAccount{
		AccountID:    "id-1",
		EmailAddress: "fed@example.com",
		First:        "Fed",
		Last:         "User",
		Provider:     "google",
		Subject:      "sub-1",
	}))

	acct, err := store.GetBySubject(ctx, "google", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", acct.Id())
	assert.Equal(t, ad.ProvenanceGoogle, acct.Provenance())

	err = store.CreateFederated(ctx, &ad.FederatedAccount{
		AccountID: "id-2", EmailAddress: "other@example.com", Provider: "google", Subject: "sub-1",
	})
	assert.ErrorIs(t, err, ad.ErrSubjectTaken)

	_, err = store.GetBySubject(ctx, "github", "sub-1")
	assert.ErrorIs(t, err, ad.ErrAccountNotFound)
}

func TestGormStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetById(ctx, "missing")
	assert.ErrorIs(t, err, ad.ErrAccountNotFound)
	_, err = store.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ad.ErrAccountNotFound)
	_, err = store.GetBySubject(ctx, "google", "missing")
	assert.ErrorIs(t, err, ad.ErrAccountNotFound)
}

func TestGormStoreLinkSubject(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateLocal(ctx, &ad.LocalAccount{AccountID: "id-1", EmailAddress: "ann@example.com", PasswordHash: "hash"}))
	require.NoError(t, store.LinkSubject(ctx, "id-1", "google", "sub-9"))

	acct, err := store.GetBySubject(ctx, "google", "sub-9")
	require.NoError(t, err)
	assert.Equal(t, "id-1", acct.Id())
	assert.Equal(t, ad.ProvenanceLocal, acct.Provenance())

	local, ok := acct.(*ad.LocalAccount)
	require.True(t, ok)
	assert.Equal(t, "sub-9", local.LinkedSubject)
	assert.Equal(t, "hash", local.PasswordHash)

	require.NoError(t, store.CreateLocal(ctx, &ad.LocalAccount{AccountID: "id-2", EmailAddress: "bob@example.com"}))
	err = store.LinkSubject(ctx, "id-2", "google", "sub-9")
	assert.ErrorIs(t, err, ad.ErrSubjectTaken)
}

func TestGormStoreLinkSubjectRejectsFederated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateFederated(ctx, &ad.FederatedAccount{
		AccountID: "id-1", EmailAddress: "fed@example.com", Provider: "google", Subject: "sub-1",
	}))
	err := store.LinkSubject(ctx, "id-1", "google", "sub-2")
	assert.Error(t, err)
}

func TestTranslateDuplicate(t *testing.T) {
	assert.NoError(t, translateDuplicate(nil, ad.ErrEmailTaken))
	assert.ErrorIs(t, translateDuplicate(gorm.ErrDuplicatedKey, ad.ErrEmailTaken), ad.ErrEmailTaken)
	assert.ErrorIs(t,
		translateDuplicate(assert.AnError, ad.ErrEmailTaken),
		assert.AnError)
}
