package installation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestQueryFromInstallation(t *testing.T) {
	inst := &Installation{
		Enterprise:          &Enterprise{ID: "E111"},
		Team:                &Team{ID: "T111"},
		User:                User{ID: "U111"},
		IsEnterpriseInstall: false,
	}
	q := inst.Query()
	require.NotNil(t, q.EnterpriseID)
	assert.Equal(t, "E111", *q.EnterpriseID)
	require.NotNil(t, q.TeamID)
	assert.Equal(t, "T111", *q.TeamID)
	require.NotNil(t, q.UserID)
	assert.Equal(t, "U111", *q.UserID)
	assert.False(t, q.IsEnterpriseInstall)
}

func TestQueryFromOrgWideInstallation(t *testing.T) {
	inst := &Installation{
		Enterprise:          &Enterprise{ID: "E111"},
		User:                User{ID: "U111"},
		IsEnterpriseInstall: true,
	}
	q := inst.Query()
	assert.Nil(t, q.TeamID)
	assert.True(t, q.IsEnterpriseInstall)
}

func TestQueryWithoutUser(t *testing.T) {
	q := Query{
		EnterpriseID: strPtr("E111"),
		TeamID:       strPtr("T111"),
		UserID:       strPtr("U111"),
	}
	bot := q.WithoutUser()
	assert.Nil(t, bot.UserID)
	require.NotNil(t, bot.TeamID)
	assert.Equal(t, "T111", *bot.TeamID)

	// The original query is untouched.
	require.NotNil(t, q.UserID)
}

func TestQueryLogPart(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{
			name: "all present",
			q:    Query{EnterpriseID: strPtr("E111"), TeamID: strPtr("T111"), UserID: strPtr("U111")},
			want: "(enterprise_id: E111, team_id: T111, user_id: U111)",
		},
		{
			name: "absent fields render as undefined",
			q:    Query{EnterpriseID: strPtr("E111"), IsEnterpriseInstall: true},
			want: "(enterprise_id: E111, team_id: undefined, user_id: undefined)",
		},
		{
			name: "empty query",
			q:    Query{},
			want: "(enterprise_id: undefined, team_id: undefined, user_id: undefined)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.LogPart())
		})
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := NewNotFoundError(Query{
		EnterpriseID:        strPtr("test-enterprise-id"),
		UserID:              strPtr("test-user-id-1"),
		IsEnterpriseInstall: true,
	})
	assert.EqualError(t, err,
		"No installation data found (enterprise_id: test-enterprise-id, team_id: undefined, user_id: test-user-id-1)")
}

func TestIsNotFound(t *testing.T) {
	err := NewNotFoundError(Query{})
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(fmt.Errorf("fetch failed: %w", err)))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}
