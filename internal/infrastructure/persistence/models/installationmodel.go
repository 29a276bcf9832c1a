package models

import "time"

// InstallationModel represents the database persistence model for Slack app
// installations. Historical mode appends one row per grant event; the
// current view is reconstructed from the latest rows at fetch time.
//
// Optional tenant columns are pointers so absent values persist as NULL.
// The client_id / enterprise_id / team_id / user_id filters depend on NULL
// being distinguishable from empty string.
type InstallationModel struct {
	ID                              uint    `gorm:"primarykey"`
	ClientID                        *string `gorm:"size:64;index:idx_installations_scope,priority:1"`
	AppID                           string  `gorm:"size:32"`
	EnterpriseID                    *string `gorm:"size:32;index:idx_installations_scope,priority:2"`
	EnterpriseName                  *string `gorm:"size:255"`
	EnterpriseURL                   *string `gorm:"size:255;column:enterprise_url"`
	TeamID                          *string `gorm:"size:32;index:idx_installations_scope,priority:3"`
	TeamName                        *string `gorm:"size:255"`
	BotID                           *string `gorm:"size:32"`
	BotUserID                       *string `gorm:"size:32"`
	BotToken                        *string `gorm:"size:255"`
	BotRefreshToken                 *string `gorm:"size:255"`
	BotScopes                       *string `gorm:"size:1024"`
	BotTokenExpiresAt               *time.Time
	UserID                          string  `gorm:"size:32;not null;index:idx_installations_user"`
	UserToken                       *string `gorm:"size:255"`
	UserRefreshToken                *string `gorm:"size:255"`
	UserScopes                      *string `gorm:"size:1024"`
	UserTokenExpiresAt              *time.Time
	IncomingWebhookURL              *string `gorm:"size:512;column:incoming_webhook_url"`
	IncomingWebhookChannel          *string `gorm:"size:255"`
	IncomingWebhookChannelID        *string `gorm:"size:32"`
	IncomingWebhookConfigurationURL *string `gorm:"size:512;column:incoming_webhook_configuration_url"`
	IsEnterpriseInstall             bool
	TokenType                       string `gorm:"size:32"`
	InstalledAt                     time.Time
	CreatedAt                       time.Time
}

// TableName specifies the default table name for GORM. Stores may override
// it per instance to share one database across apps with separate tables.
func (InstallationModel) TableName() string {
	return "slack_app_installations"
}
