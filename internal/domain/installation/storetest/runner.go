package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boltstore/internal/domain/installation"
)

// Runner drives the conformance scenarios against one backend. Store runs
// without a client ID; StoreClientA and StoreClientB wrap the same
// underlying table with two different client IDs, so the suite can prove
// that apps sharing a table never see each other's data.
type Runner struct {
	Store        installation.Store
	StoreClientA installation.Store
	StoreClientB installation.Store

	// Data defaults to DefaultDataProvider.
	Data DataProvider
}

// RunOrgWideInstallationTestCases exercises the full lifecycle for an
// org-wide (enterprise) installation: latest-wins fetches, the bot overlay,
// partial and full deletion, and client ID isolation.
func (r *Runner) RunOrgWideInstallationTestCases(t *testing.T) {
	t.Helper()
	defer r.closeAll(t)

	tokenExpiresAt := time.Now().Unix()
	seed := r.provider().BuildOrgWideInstallation(tokenExpiresAt)

	user1Query := installation.Query{
		EnterpriseID:        strPtr("test-enterprise-id"),
		UserID:              strPtr("test-user-id-1"),
		IsEnterpriseInstall: true,
	}
	botQuery := installation.Query{
		EnterpriseID:        strPtr("test-enterprise-id"),
		IsEnterpriseInstall: true,
	}
	r.runLifecycle(t, seed, user1Query, botQuery, tokenExpiresAt,
		"No installation data found (enterprise_id: test-enterprise-id, team_id: undefined, user_id: undefined)",
		"No installation data found (enterprise_id: test-enterprise-id, team_id: undefined, user_id: test-user-id-1)",
	)
}

// RunTeamLevelInstallationTestCases exercises the same lifecycle for a
// workspace-level installation.
func (r *Runner) RunTeamLevelInstallationTestCases(t *testing.T) {
	t.Helper()
	defer r.closeAll(t)

	tokenExpiresAt := time.Now().Unix()
	seed := r.provider().BuildTeamInstallation(tokenExpiresAt)

	user1Query := installation.Query{
		EnterpriseID: strPtr("test-enterprise-id"),
		TeamID:       strPtr("test-team-id"),
		UserID:       strPtr("test-user-id-1"),
	}
	botQuery := installation.Query{
		EnterpriseID: strPtr("test-enterprise-id"),
		TeamID:       strPtr("test-team-id"),
	}
	r.runLifecycle(t, seed, user1Query, botQuery, tokenExpiresAt,
		"No installation data found (enterprise_id: test-enterprise-id, team_id: test-team-id, user_id: undefined)",
		"No installation data found (enterprise_id: test-enterprise-id, team_id: test-team-id, user_id: test-user-id-1)",
	)
}

// runLifecycle stores three grants: the seed, a newer user grant by the same
// user, and a newer bot grant by a second user whose user credentials were
// not authorized. Fetches must then combine user 1's latest user token with
// user 2's latest bot token.
func (r *Runner) runLifecycle(t *testing.T, seed *installation.Installation, user1Query, botQuery installation.Query, tokenExpiresAt int64, botNotFoundMsg, userNotFoundMsg string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, r.Store.StoreInstallation(ctx, seed))

	userLatest := clone(t, seed)
	require.NotNil(t, userLatest.Bot, "the test data is invalid")
	userLatest.User.Token = strPtr("xoxp-YYY")
	userLatest.User.RefreshToken = strPtr("xoxe-1-YYY")
	require.NoError(t, r.Store.StoreInstallation(ctx, userLatest))

	botLatest := clone(t, seed)
	require.NotNil(t, botLatest.Bot, "the test data is invalid")
	botLatest.User.ID = "test-user-id-2"
	botLatest.Bot.Token = "xoxb-XXX"
	botLatest.Bot.RefreshToken = strPtr("xoxe-1-XXX")
	botLatest.User.Token = nil
	botLatest.User.RefreshToken = nil
	botLatest.User.Scopes = nil
	botLatest.User.ExpiresAt = nil
	require.NoError(t, r.Store.StoreInstallation(ctx, botLatest))

	userInstallation, err := r.Store.FetchInstallation(ctx, user1Query)
	require.NoError(t, err)
	verifyLatestUserInstallation(t, userInstallation, tokenExpiresAt)
	verifyLatestBotInstallation(t, userInstallation, tokenExpiresAt)

	botInstallation, err := r.Store.FetchInstallation(ctx, botQuery)
	require.NoError(t, err)
	verifyLatestBotInstallation(t, botInstallation, tokenExpiresAt)

	if deleter, ok := r.Store.(installation.Deleter); ok {
		require.NoError(t, deleter.DeleteInstallation(ctx, user1Query))

		// The user token is gone but bot data must survive the deletion.
		userInstallation, err = r.Store.FetchInstallation(ctx, user1Query)
		require.NoError(t, err)
		assert.Nil(t, userInstallation.User.Token)
		verifyLatestBotInstallation(t, userInstallation, tokenExpiresAt)

		botInstallation, err = r.Store.FetchInstallation(ctx, botQuery)
		require.NoError(t, err)
		verifyLatestBotInstallation(t, botInstallation, tokenExpiresAt)

		require.NoError(t, deleter.DeleteInstallation(ctx, botQuery))

		_, err = r.Store.FetchInstallation(ctx, botQuery)
		requireNotFound(t, err, botNotFoundMsg)
	}

	// Multiple apps sharing one table: app A stores grants for the same
	// workspace under its own client ID.
	appABot := clone(t, seed)
	require.NotNil(t, appABot.Bot, "the test data is invalid")
	appABot.User.ID = "test-user-id-2"
	appABot.Bot.Token = "xoxb-XXX"
	appABot.Bot.RefreshToken = strPtr("xoxe-1-XXX")
	require.NoError(t, r.StoreClientA.StoreInstallation(ctx, appABot))

	found, err := r.StoreClientA.FetchInstallation(ctx, botQuery)
	require.NoError(t, err)
	assert.NotNil(t, found)

	appAUser := clone(t, seed)
	require.NoError(t, r.StoreClientA.StoreInstallation(ctx, appAUser))
	found, err = r.StoreClientA.FetchInstallation(ctx, user1Query)
	require.NoError(t, err)
	assert.NotNil(t, found)

	// A store without a client ID must not see app A's data.
	_, err = r.Store.FetchInstallation(ctx, botQuery)
	requireNotFound(t, err, botNotFoundMsg)
	_, err = r.Store.FetchInstallation(ctx, user1Query)
	requireNotFound(t, err, userNotFoundMsg)

	// Neither may a different app, even for the same workspace.
	_, err = r.StoreClientB.FetchInstallation(ctx, botQuery)
	requireNotFound(t, err, botNotFoundMsg)
	_, err = r.StoreClientB.FetchInstallation(ctx, user1Query)
	requireNotFound(t, err, userNotFoundMsg)
}

func (r *Runner) provider() DataProvider {
	if r.Data != nil {
		return r.Data
	}
	return DefaultDataProvider{}
}

// closeAll releases the stores that own their connections. Best effort.
func (r *Runner) closeAll(t *testing.T) {
	t.Helper()
	for _, s := range []installation.Store{r.Store, r.StoreClientA, r.StoreClientB} {
		if closer, ok := s.(installation.Closer); ok {
			if err := closer.Close(); err != nil {
				t.Logf("failed to close store: %v", err)
			}
		}
	}
}

func verifyLatestBotInstallation(t *testing.T, inst *installation.Installation, expiresAt int64) {
	t.Helper()
	require.NotNil(t, inst)
	assert.Equal(t, "test-app-id", inst.AppID)
	require.NotNil(t, inst.Bot)
	assert.Equal(t, "xoxb-XXX", inst.Bot.Token)
	require.NotNil(t, inst.Bot.RefreshToken)
	assert.Equal(t, "xoxe-1-XXX", *inst.Bot.RefreshToken)
	require.NotNil(t, inst.Bot.ExpiresAt)
	assert.Equal(t, expiresAt, *inst.Bot.ExpiresAt)
}

func verifyLatestUserInstallation(t *testing.T, inst *installation.Installation, expiresAt int64) {
	t.Helper()
	require.NotNil(t, inst)
	assert.Equal(t, "test-app-id", inst.AppID)
	require.NotNil(t, inst.User.Token)
	assert.Equal(t, "xoxp-YYY", *inst.User.Token)
	require.NotNil(t, inst.User.RefreshToken)
	assert.Equal(t, "xoxe-1-YYY", *inst.User.RefreshToken)
	require.NotNil(t, inst.User.ExpiresAt)
	assert.Equal(t, expiresAt, *inst.User.ExpiresAt)
}

func requireNotFound(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, installation.IsNotFound(err))
	assert.EqualError(t, err, message)
}

// clone deep-copies an installation through its JSON form so scenario
// mutations never leak into the shared seed.
func clone(t *testing.T, inst *installation.Installation) *installation.Installation {
	t.Helper()
	data, err := json.Marshal(inst)
	require.NoError(t, err)
	var out installation.Installation
	require.NoError(t, json.Unmarshal(data, &out))
	return &out
}
