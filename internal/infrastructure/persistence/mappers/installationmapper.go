package mappers

import (
	"strings"
	"time"

	"boltstore/internal/domain/installation"
	"boltstore/internal/infrastructure/persistence/models"
	"boltstore/internal/shared/mapper"
)

// InstallationMapper handles the conversion between the installation domain
// entity and the persistence model, including the expiry unit conversion:
// domain ExpiresAt is seconds since epoch, columns are absolute timestamps.
type InstallationMapper interface {
	// ToModel converts a domain entity to a persistence model owned by the
	// given client ID.
	ToModel(clientID *string, inst *installation.Installation) *models.InstallationModel

	// ToDomain converts a persistence model to a domain entity.
	ToDomain(model *models.InstallationModel) *installation.Installation

	// ToDomainList converts multiple persistence models to domain entities.
	ToDomainList(models []*models.InstallationModel) []*installation.Installation

	// OverlayBot copies the bot columns of src onto dst. Historical-mode
	// fetches use it to combine the latest user row with the latest bot row.
	OverlayBot(dst, src *models.InstallationModel)
}

// InstallationMapperImpl is the concrete implementation of InstallationMapper.
type InstallationMapperImpl struct{}

// NewInstallationMapper creates a new InstallationMapper.
func NewInstallationMapper() InstallationMapper {
	return &InstallationMapperImpl{}
}

// ToModel converts a domain entity to a persistence model.
func (m *InstallationMapperImpl) ToModel(clientID *string, inst *installation.Installation) *models.InstallationModel {
	if inst == nil {
		return nil
	}
	row := &models.InstallationModel{
		ClientID:            clientID,
		AppID:               inst.AppID,
		UserID:              inst.User.ID,
		UserToken:           inst.User.Token,
		UserRefreshToken:    inst.User.RefreshToken,
		UserScopes:          joinScopes(inst.User.Scopes),
		UserTokenExpiresAt:  secondsToTime(inst.User.ExpiresAt),
		EnterpriseURL:       inst.EnterpriseURL,
		IsEnterpriseInstall: inst.IsEnterpriseInstall,
		TokenType:           inst.TokenType,
		InstalledAt:         inst.InstalledAt,
	}
	if row.InstalledAt.IsZero() {
		row.InstalledAt = time.Now().UTC()
	}
	if inst.Enterprise != nil {
		row.EnterpriseID = &inst.Enterprise.ID
		row.EnterpriseName = strPtrOrNil(inst.Enterprise.Name)
	}
	if inst.Team != nil {
		row.TeamID = &inst.Team.ID
		row.TeamName = strPtrOrNil(inst.Team.Name)
	}
	if inst.Bot != nil {
		row.BotID = &inst.Bot.ID
		row.BotUserID = &inst.Bot.UserID
		row.BotToken = &inst.Bot.Token
		row.BotRefreshToken = inst.Bot.RefreshToken
		row.BotScopes = joinScopes(inst.Bot.Scopes)
		row.BotTokenExpiresAt = secondsToTime(inst.Bot.ExpiresAt)
	}
	if inst.IncomingWebhook != nil {
		row.IncomingWebhookURL = &inst.IncomingWebhook.URL
		row.IncomingWebhookChannel = inst.IncomingWebhook.Channel
		row.IncomingWebhookChannelID = inst.IncomingWebhook.ChannelID
		row.IncomingWebhookConfigurationURL = inst.IncomingWebhook.ConfigurationURL
	}
	return row
}

// ToDomain converts a persistence model to a domain entity.
func (m *InstallationMapperImpl) ToDomain(row *models.InstallationModel) *installation.Installation {
	if row == nil {
		return nil
	}
	inst := &installation.Installation{
		AppID:         row.AppID,
		EnterpriseURL: row.EnterpriseURL,
		User: installation.User{
			ID:           row.UserID,
			Token:        row.UserToken,
			RefreshToken: row.UserRefreshToken,
			Scopes:       splitScopes(row.UserScopes),
			ExpiresAt:    timeToSeconds(row.UserTokenExpiresAt),
		},
		IsEnterpriseInstall: row.IsEnterpriseInstall,
		TokenType:           row.TokenType,
		InstalledAt:         row.InstalledAt,
	}
	if row.EnterpriseID != nil {
		inst.Enterprise = &installation.Enterprise{
			ID:   *row.EnterpriseID,
			Name: strOrEmpty(row.EnterpriseName),
		}
	}
	if row.TeamID != nil {
		inst.Team = &installation.Team{
			ID:   *row.TeamID,
			Name: strOrEmpty(row.TeamName),
		}
	}
	// Bot fields are jointly present or the bot sub-object is omitted.
	if row.BotID != nil && row.BotUserID != nil && row.BotToken != nil {
		inst.Bot = &installation.Bot{
			ID:           *row.BotID,
			UserID:       *row.BotUserID,
			Token:        *row.BotToken,
			RefreshToken: row.BotRefreshToken,
			Scopes:       splitScopes(row.BotScopes),
			ExpiresAt:    timeToSeconds(row.BotTokenExpiresAt),
		}
	}
	if row.IncomingWebhookURL != nil {
		inst.IncomingWebhook = &installation.IncomingWebhook{
			URL:              *row.IncomingWebhookURL,
			Channel:          row.IncomingWebhookChannel,
			ChannelID:        row.IncomingWebhookChannelID,
			ConfigurationURL: row.IncomingWebhookConfigurationURL,
		}
	}
	return inst
}

// ToDomainList converts multiple persistence models to domain entities.
func (m *InstallationMapperImpl) ToDomainList(items []*models.InstallationModel) []*installation.Installation {
	return mapper.MapSlicePtr(items, m.ToDomain)
}

// OverlayBot copies the bot columns of src onto dst.
func (m *InstallationMapperImpl) OverlayBot(dst, src *models.InstallationModel) {
	if dst == nil || src == nil {
		return
	}
	dst.BotID = src.BotID
	dst.BotUserID = src.BotUserID
	dst.BotToken = src.BotToken
	dst.BotRefreshToken = src.BotRefreshToken
	dst.BotScopes = src.BotScopes
	dst.BotTokenExpiresAt = src.BotTokenExpiresAt
}

func joinScopes(scopes []string) *string {
	if len(scopes) == 0 {
		return nil
	}
	joined := strings.Join(scopes, ",")
	return &joined
}

func splitScopes(joined *string) []string {
	if joined == nil || *joined == "" {
		return nil
	}
	return strings.Split(*joined, ",")
}

func secondsToTime(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

func timeToSeconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	sec := t.Unix()
	return &sec
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
