package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*BBoltCredentialStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "credentials.db")
	store, err := NewBBoltCredentialStore(dbPath)
	require.NoError(t, err)
	return store, dbPath
}

func TestBBoltCredentialStore_SaveLoadClear(t *testing.T) {
	store, _ := setupTestDB(t)
	defer store.Close()
	ctx := context.Background()

	creds := &domain.Credentials{
		Token:    "tok-1",
		User:     json.RawMessage(`{"id":"u-1"}`),
		UserType: domain.UserTypeSuperAdmin,
		Slug:     "root",
	}
	require.NoError(t, store.Save(ctx, "s-1", creds))

	got, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	// Partial clear keeps the remaining artifacts.
	require.NoError(t, store.Clear(ctx, "s-1", domain.KeySlug))
	ids, err := store.Sessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids)

	require.NoError(t, store.Clear(ctx, "s-1", domain.CredentialKeys()...))
	_, err = store.Load(ctx, "s-1")
	assert.ErrorIs(t, err, serrors.ErrCredentialsNotFound)

	ids, err = store.Sessions()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBBoltCredentialStore_SurvivesReopen(t *testing.T) {
	store, dbPath := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s-1", &domain.Credentials{Token: "tok"}))
	require.NoError(t, store.Close())

	reopened, err := NewBBoltCredentialStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
}

func TestBBoltCredentialStore_ClearUnknownSession(t *testing.T) {
	store, _ := setupTestDB(t)
	defer store.Close()

	assert.NoError(t, store.Clear(context.Background(), "missing", domain.CredentialKeys()...))
}
