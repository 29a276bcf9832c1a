// Package installations provides administrative commands for inspecting
// and pruning the stored Slack app installations.
package installations

import (
	"fmt"

	"github.com/spf13/cobra"

	"boltstore/internal/domain/installation"
	"boltstore/internal/infrastructure/config"
	"boltstore/internal/infrastructure/database"
	"boltstore/internal/infrastructure/persistence/mappers"
	"boltstore/internal/infrastructure/persistence/models"
	"boltstore/internal/infrastructure/repository"
	"boltstore/internal/shared/logger"
	"boltstore/internal/shared/utils"
)

var (
	enterpriseID string
	teamID       string
	userID       string
	orgWide      bool
	limit        int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installations",
		Short: "Inspect stored installations",
		Long:  `List and delete Slack app installation records. Tokens are masked in all output.`,
	}

	cmd.AddCommand(
		newListCommand(),
		newDeleteCommand(),
	)

	return cmd
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installation rows, newest first",
		RunE:  runList,
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of rows to print")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the installations matching the given scope",
		RunE:  runDelete,
	}
	cmd.Flags().StringVar(&enterpriseID, "enterprise-id", "", "Enterprise (org) ID filter")
	cmd.Flags().StringVar(&teamID, "team-id", "", "Workspace ID filter")
	cmd.Flags().StringVar(&userID, "user-id", "", "Installer user ID filter")
	cmd.Flags().BoolVar(&orgWide, "org-wide", false, "Match org-wide installations only")
	return cmd
}

func initEnv() (*config.Config, logger.Interface, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := database.Init(&cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, logger.NewLogger(), nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	var rows []*models.InstallationModel
	err = database.Get().Table(cfg.Slack.InstallationTable).
		Order("id DESC").Limit(limit).
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to list installations: %w", err)
	}

	mapper := mappers.NewInstallationMapper()
	for _, row := range rows {
		inst := mapper.ToDomain(row)
		var botToken *string
		if inst.Bot != nil {
			botToken = &inst.Bot.Token
		}
		fmt.Printf("%-6d %-20s %-20s %-16s bot=%-16s user=%-16s installed=%s\n",
			row.ID,
			strOrDash(row.EnterpriseID),
			strOrDash(row.TeamID),
			row.UserID,
			utils.MaskTokenPtr(botToken),
			utils.MaskTokenPtr(inst.User.Token),
			row.InstalledAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Printf("%d row(s)\n", len(rows))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, log, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	store, err := repository.NewInstallationRepository(repository.InstallationRepositoryOptions{
		DB:        database.Get(),
		ClientID:  clientIDFromConfig(cfg),
		TableName: cfg.Slack.InstallationTable,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	query := installation.Query{
		EnterpriseID:        optional(enterpriseID),
		TeamID:              optional(teamID),
		UserID:              optional(userID),
		IsEnterpriseInstall: orgWide,
	}
	if err := store.DeleteInstallation(cmd.Context(), query); err != nil {
		return fmt.Errorf("failed to delete installations: %w", err)
	}

	fmt.Println("deleted installations " + query.LogPart())
	return nil
}

func clientIDFromConfig(cfg *config.Config) *string {
	if cfg.Slack.ClientID == "" {
		return nil
	}
	return &cfg.Slack.ClientID
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func strOrDash(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
