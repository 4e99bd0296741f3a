package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "stagectl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	token, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, token, "fresh store holds no token")

	require.NoError(t, store.Set("tok-1"))
	token, err = store.Get()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// Overwrite under the same fixed key.
	require.NoError(t, store.Set("tok-2"))
	token, err = store.Get()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
}

func TestSQLiteStoreClear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("tok-1"))
	require.NoError(t, store.Clear())

	token, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, token)

	// Clearing an already-empty store is fine.
	require.NoError(t, store.Clear())
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagectl.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("tok-durable"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	token, err := reopened.Get()
	require.NoError(t, err)
	assert.Equal(t, "tok-durable", token)
}
