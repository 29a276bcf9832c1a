// Package installation defines the domain model for persisted Slack OAuth
// grants and the capability contract implemented by every installation store
// backend.
package installation

import "time"

// Enterprise identifies the Slack Enterprise Grid organization an
// installation belongs to.
type Enterprise struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Team identifies the workspace an installation is scoped to. Absent for
// org-wide installs.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// User holds the installing user's identity and (optionally) their user
// token grant. Token fields are absent when the user did not request any
// user scopes.
type User struct {
	ID           string   `json:"id"`
	Token        *string  `json:"token,omitempty"`
	RefreshToken *string  `json:"refreshToken,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	// ExpiresAt is seconds since the Unix epoch.
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// Bot holds the bot token grant. ID, UserID and Token are jointly present;
// an installation without any bot scopes carries no Bot at all.
type Bot struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	Token        string   `json:"token"`
	RefreshToken *string  `json:"refreshToken,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	// ExpiresAt is seconds since the Unix epoch.
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// IncomingWebhook holds the webhook created during installation, if the app
// requested the incoming-webhook scope.
type IncomingWebhook struct {
	URL              string  `json:"url"`
	Channel          *string `json:"channel,omitempty"`
	ChannelID        *string `json:"channelId,omitempty"`
	ConfigurationURL *string `json:"configurationUrl,omitempty"`
}

// Installation is the unit of persisted OAuth grant data. One Installation
// is produced per grant event: initial install, reinstall, token rotation,
// or an additional scope grant.
type Installation struct {
	AppID               string           `json:"appId,omitempty"`
	Enterprise          *Enterprise      `json:"enterprise,omitempty"`
	Team                *Team            `json:"team,omitempty"`
	EnterpriseURL       *string          `json:"enterpriseUrl,omitempty"`
	User                User             `json:"user"`
	Bot                 *Bot             `json:"bot,omitempty"`
	IncomingWebhook     *IncomingWebhook `json:"incomingWebhook,omitempty"`
	IsEnterpriseInstall bool             `json:"isEnterpriseInstall"`
	TokenType           string           `json:"tokenType,omitempty"`
	InstalledAt         time.Time        `json:"installedAt"`
}

// Query derives the lookup key this installation would be stored under.
func (i *Installation) Query() Query {
	q := Query{
		UserID:              &i.User.ID,
		IsEnterpriseInstall: i.IsEnterpriseInstall,
	}
	if i.Enterprise != nil {
		q.EnterpriseID = &i.Enterprise.ID
	}
	if i.Team != nil {
		q.TeamID = &i.Team.ID
	}
	return q
}
