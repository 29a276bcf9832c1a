package main

import (
	"os"

	"github.com/spf13/cobra"

	"boltstore/internal/interfaces/cli/installations"
	"boltstore/internal/interfaces/cli/installurl"
	"boltstore/internal/interfaces/cli/migrate"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boltstore",
		Short: "Boltstore - Slack app installation store tooling",
		Long:  `Boltstore manages Slack OAuth installation data: schema migration, record inspection, and install URL generation.`,
	}

	rootCmd.AddCommand(
		migrate.NewCommand(),
		installations.NewCommand(),
		installurl.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
