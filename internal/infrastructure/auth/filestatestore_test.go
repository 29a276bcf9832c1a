package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boltstore/internal/domain/oauthstate"
)

func newFileTestStore(t *testing.T, expirationSeconds int) *FileStateStore {
	t.Helper()
	store, err := NewFileStateStore(FileStateStoreOptions{
		StateSecret:       "secret",
		BaseDir:           t.TempDir(),
		ExpirationSeconds: expirationSeconds,
	})
	require.NoError(t, err)
	return store
}

func TestFileStateStoreRequiresSecret(t *testing.T) {
	_, err := NewFileStateStore(FileStateStoreOptions{BaseDir: t.TempDir()})
	require.Error(t, err)
}

func TestFileStateStoreRoundTrip(t *testing.T) {
	store := newFileTestStore(t, 10)
	ctx := context.Background()
	now := time.Now()

	opts := testInstallOptions()
	state, err := store.GenerateStateParam(ctx, opts, now)
	require.NoError(t, err)

	verified, err := store.VerifyStateParam(ctx, now, state)
	require.NoError(t, err)
	assert.Equal(t, opts, verified)
}

func TestFileStateStoreSingleUse(t *testing.T) {
	store := newFileTestStore(t, 10)
	ctx := context.Background()
	now := time.Now()

	state, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
	require.NoError(t, err)

	_, err = store.VerifyStateParam(ctx, now, state)
	require.NoError(t, err)

	// A second verification of the same state must fail.
	_, err = store.VerifyStateParam(ctx, now, state)
	require.Error(t, err)
	assert.True(t, oauthstate.IsInvalidState(err))
	assert.EqualError(t, err, "The state value is already expired")
}

func TestFileStateStoreExpiredStateIsConsumed(t *testing.T) {
	store := newFileTestStore(t, 10)
	ctx := context.Background()
	now := time.Now()

	state, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
	require.NoError(t, err)

	_, err = store.VerifyStateParam(ctx, now.Add(11*time.Second), state)
	require.Error(t, err)
	assert.EqualError(t, err, "The state value is already expired")

	// The failed attempt still removed the entry.
	found, err := store.findEntry(state)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStateStoreRejectsUnknownState(t *testing.T) {
	store := newFileTestStore(t, 10)
	ctx := context.Background()
	now := time.Now()

	// Signed with the right secret but never issued by this store.
	foreign, err := store.codec.Sign(testInstallOptions(), now)
	require.NoError(t, err)

	_, err = store.VerifyStateParam(ctx, now, foreign)
	require.Error(t, err)
	assert.True(t, oauthstate.IsInvalidState(err))
	assert.EqualError(t, err, "The state value is already expired")
}

func TestFileStateStoreShortestUniqueKeys(t *testing.T) {
	store := newFileTestStore(t, 10)
	ctx := context.Background()
	now := time.Now()

	var states []string
	for i := 0; i < 5; i++ {
		state, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
		require.NoError(t, err)
		states = append(states, state)
	}

	keys, err := store.readIndex()
	require.NoError(t, err)
	require.Len(t, keys, 5)
	for i, key := range keys {
		assert.Less(t, len(key), len(states[i]))
		data, err := os.ReadFile(filepath.Join(store.baseDir, key))
		require.NoError(t, err)
		assert.Equal(t, states[i], string(data))
	}

	for _, state := range states {
		_, err := store.VerifyStateParam(ctx, now, state)
		require.NoError(t, err)
	}

	keys, err = store.readIndex()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStateStoreConcurrentFlows(t *testing.T) {
	store := newFileTestStore(t, 10)
	ctx := context.Background()
	now := time.Now()

	first, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
	require.NoError(t, err)
	second, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
	require.NoError(t, err)

	// Consuming one state leaves the other verifiable.
	_, err = store.VerifyStateParam(ctx, now, first)
	require.NoError(t, err)
	_, err = store.VerifyStateParam(ctx, now, second)
	require.NoError(t, err)
}
