// Package storetest provides a reusable conformance suite for
// installation.Store implementations. Every backend runs the same
// scenarios, so their lifecycle semantics stay interchangeable.
package storetest

import (
	"boltstore/internal/domain/installation"
)

// DataProvider builds the seed installations the suite stores. Supplying a
// custom provider lets a backend with extra required columns participate.
type DataProvider interface {
	BuildOrgWideInstallation(tokenExpiresAt int64) *installation.Installation
	BuildTeamInstallation(tokenExpiresAt int64) *installation.Installation
}

// DefaultDataProvider builds the standard seed data.
type DefaultDataProvider struct{}

// BuildOrgWideInstallation returns an org-wide grant: enterprise set, no
// team, both bot and user credentials present.
func (DefaultDataProvider) BuildOrgWideInstallation(tokenExpiresAt int64) *installation.Installation {
	inst := baseInstallation(tokenExpiresAt)
	inst.IsEnterpriseInstall = true
	return inst
}

// BuildTeamInstallation returns a workspace-level grant within the same
// enterprise.
func (DefaultDataProvider) BuildTeamInstallation(tokenExpiresAt int64) *installation.Installation {
	inst := baseInstallation(tokenExpiresAt)
	inst.Team = &installation.Team{ID: "test-team-id", Name: "test-team-name"}
	return inst
}

func baseInstallation(tokenExpiresAt int64) *installation.Installation {
	botRefresh := "xoxe-1-xxx"
	userToken := "xoxp-yyy"
	userRefresh := "xoxe-1-yyy"
	botExpires := tokenExpiresAt
	userExpires := tokenExpiresAt
	return &installation.Installation{
		AppID: "test-app-id",
		Enterprise: &installation.Enterprise{
			ID:   "test-enterprise-id",
			Name: "test-enterprise-name",
		},
		Bot: &installation.Bot{
			ID:           "test-bot-id",
			UserID:       "test-bot-user-id",
			Token:        "xoxb-xxx",
			RefreshToken: &botRefresh,
			Scopes:       []string{"commands", "chat:write"},
			ExpiresAt:    &botExpires,
		},
		User: installation.User{
			ID:           "test-user-id-1",
			Token:        &userToken,
			RefreshToken: &userRefresh,
			Scopes:       []string{"search:read"},
			ExpiresAt:    &userExpires,
		},
		IncomingWebhook: &installation.IncomingWebhook{
			URL:              "https://www.example.com/webhooks/xxx",
			Channel:          strPtr("channel name"),
			ChannelID:        strPtr("channel ID"),
			ConfigurationURL: strPtr("https://www.example.com/webhooks/configuration/xxx"),
		},
	}
}

func strPtr(s string) *string {
	return &s
}
