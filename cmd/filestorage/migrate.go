package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evteevakb/filestorage/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create or upgrade the users, tokens and files tables, then validate
the resulting schema. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	db, err := openDatabase(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	slog.Info("database migration complete", "type", cfg.Database.Type)
	return nil
}
