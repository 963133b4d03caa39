package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/evteevakb/filestorage"
	"github.com/evteevakb/filestorage/config"
)

var useraddCmd = &cobra.Command{
	Use:   "useradd [flags] <username>",
	Short: "Register a user",
	Long: `Register a user without going through the HTTP API.

The password is taken from --password, or from the FILESTORAGE_PASSWORD
environment variable so it stays out of the shell history.

Examples:
  filestorage useradd --password pw123 bob
  FILESTORAGE_PASSWORD=pw123 filestorage useradd bob`,
	Args: cobra.ExactArgs(1),
	RunE: runUseradd,
}

var useraddPassword string

func init() {
	useraddCmd.Flags().StringVarP(&useraddPassword, "password", "p", "", "password for the new user (env: FILESTORAGE_PASSWORD)")
	rootCmd.AddCommand(useraddCmd)
}

func runUseradd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	username := args[0]

	password := useraddPassword
	if password == "" {
		password = os.Getenv(config.EnvPrefix + "_PASSWORD")
	}
	if password == "" {
		return errors.New("password is required: use --password or " + config.EnvPrefix + "_PASSWORD")
	}

	db, err := openDatabase(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	auth := filestorage.NewAuthService(db.Users(), db.Tokens(), filestorage.AuthConfig{
		BcryptCost: cfg.Service.BcryptCost,
	})

	if err = auth.Register(ctx, username, password); err != nil {
		return fmt.Errorf("useradd %s: %w", username, err)
	}

	slog.Info("user registered", "username", username)
	return nil
}
