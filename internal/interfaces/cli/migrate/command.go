package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"boltstore/internal/infrastructure/config"
	"boltstore/internal/infrastructure/database"
	"boltstore/internal/infrastructure/persistence/models"
	"boltstore/internal/shared/logger"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage the installations table schema.`,
	}

	cmd.AddCommand(newUpCommand())

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create or update the installations table",
		Long:  `Apply the installations table schema to the configured database.`,
		RunE:  runUp,
	}
}

func initEnv() (*config.Config, logger.Interface, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := database.Init(&cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, log, nil
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, log, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	log.Info("applying installations table schema", "table", cfg.Slack.InstallationTable)

	migrator := database.Get()
	if cfg.Slack.InstallationTable != "" {
		migrator = migrator.Table(cfg.Slack.InstallationTable)
	}
	if err := migrator.AutoMigrate(&models.InstallationModel{}); err != nil {
		log.Error("migration failed", "error", err)
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("migrations completed successfully")
	return nil
}
