package pgstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
	"github.com/proserve/proserve-client/internal/testutil"
)

func setupStore(t *testing.T, key string) *Store {
	t.Helper()
	db := testutil.SetupTestDB(t)

	store := New(db, key)
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(func() { _ = store.Clear(ctx) })
	return store
}

func TestStore_SetAndGet(t *testing.T) {
	store := setupStore(t, "test:set-get")
	ctx := context.Background()

	pair := domainauth.TokenPair{AccessToken: "T1", RefreshToken: "R1"}
	require.NoError(t, store.Set(ctx, pair))

	retrieved, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, pair, retrieved)
}

func TestStore_GetAbsent(t *testing.T) {
	store := setupStore(t, "test:absent")

	_, err := store.Get(context.Background())
	assert.ErrorIs(t, err, domainauth.ErrNoCredentials)
}

func TestStore_SetRejectsPartialPair(t *testing.T) {
	store := setupStore(t, "test:partial")
	ctx := context.Background()

	assert.Error(t, store.Set(ctx, domainauth.TokenPair{AccessToken: "T1"}))

	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, domainauth.ErrNoCredentials)
}

func TestStore_UpsertReplacesPair(t *testing.T) {
	store := setupStore(t, "test:upsert")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, domainauth.TokenPair{AccessToken: "T1", RefreshToken: "R1"}))
	require.NoError(t, store.Set(ctx, domainauth.TokenPair{AccessToken: "T2", RefreshToken: "R2"}))

	retrieved, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.TokenPair{AccessToken: "T2", RefreshToken: "R2"}, retrieved)
}

func TestStore_Clear(t *testing.T) {
	store := setupStore(t, "test:clear")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, domainauth.TokenPair{AccessToken: "T1", RefreshToken: "R1"}))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, domainauth.ErrNoCredentials)

	// Clearing an empty store is not an error.
	assert.NoError(t, store.Clear(ctx))
}

func TestStore_KeysAreIsolated(t *testing.T) {
	storeA := setupStore(t, "test:isolated-a")
	storeB := New(storeA.db, "test:isolated-b")
	ctx := context.Background()
	t.Cleanup(func() { _ = storeB.Clear(ctx) })

	require.NoError(t, storeA.Set(ctx, domainauth.TokenPair{AccessToken: "TA", RefreshToken: "RA"}))
	require.NoError(t, storeB.Set(ctx, domainauth.TokenPair{AccessToken: "TB", RefreshToken: "RB"}))
	require.NoError(t, storeA.Clear(ctx))

	_, err := storeA.Get(ctx)
	assert.ErrorIs(t, err, domainauth.ErrNoCredentials)

	retrieved, err := storeB.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.TokenPair{AccessToken: "TB", RefreshToken: "RB"}, retrieved)
}
