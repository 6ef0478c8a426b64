package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-navigator/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database URL is required (set DATABASE_URL or database.url)")
	}
	ctx := commandContext(cmd)

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}
