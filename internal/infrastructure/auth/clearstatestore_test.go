package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boltstore/internal/domain/oauthstate"
)

func testInstallOptions() oauthstate.InstallURLOptions {
	return oauthstate.InstallURLOptions{
		Scopes:      []string{"commands", "chat:write"},
		UserScopes:  []string{"search:read"},
		Metadata:    "some-session-data",
		TeamID:      "T111",
		RedirectURI: "https://www.example.com/slack/oauth_redirect",
	}
}

func TestClearStateStoreRoundTrip(t *testing.T) {
	store := NewClearStateStore("secret", 10)
	ctx := context.Background()
	now := time.Now()

	opts := testInstallOptions()
	state, err := store.GenerateStateParam(ctx, opts, now)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	verified, err := store.VerifyStateParam(ctx, now, state)
	require.NoError(t, err)
	assert.Equal(t, opts, verified)
}

func TestClearStateStoreUniqueStates(t *testing.T) {
	store := NewClearStateStore("secret", 10)
	ctx := context.Background()
	now := time.Now()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		state, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
		require.NoError(t, err)
		assert.False(t, seen[state], "states must not repeat")
		seen[state] = true
	}
}

func TestClearStateStoreExpiration(t *testing.T) {
	store := NewClearStateStore("secret", 10)
	ctx := context.Background()
	now := time.Now()

	state, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
	require.NoError(t, err)

	// Just inside the window.
	_, err = store.VerifyStateParam(ctx, now.Add(10*time.Second), state)
	require.NoError(t, err)

	// Just past it.
	_, err = store.VerifyStateParam(ctx, now.Add(11*time.Second), state)
	require.Error(t, err)
	assert.True(t, oauthstate.IsInvalidState(err))
	assert.EqualError(t, err, "The state value is already expired")
}

func TestClearStateStoreRejectsTamperedState(t *testing.T) {
	store := NewClearStateStore("secret", 10)
	ctx := context.Background()
	now := time.Now()

	state, err := store.GenerateStateParam(ctx, testInstallOptions(), now)
	require.NoError(t, err)

	parts := strings.Split(state, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2]

	_, err = store.VerifyStateParam(ctx, now, tampered)
	require.Error(t, err)
	assert.True(t, oauthstate.IsInvalidState(err))
	assert.EqualError(t, err, "Failed to load the data represented by the state parameter")
}

func TestClearStateStoreRejectsForeignSecret(t *testing.T) {
	issuer := NewClearStateStore("secret-a", 10)
	verifier := NewClearStateStore("secret-b", 10)
	ctx := context.Background()
	now := time.Now()

	state, err := issuer.GenerateStateParam(ctx, testInstallOptions(), now)
	require.NoError(t, err)

	_, err = verifier.VerifyStateParam(ctx, now, state)
	require.Error(t, err)
	assert.True(t, oauthstate.IsInvalidState(err))
}

func TestClearStateStoreDefaultExpiration(t *testing.T) {
	store := NewClearStateStore("secret", 0)
	assert.Equal(t, DefaultStateExpirationSeconds, store.expirationSeconds)
}
