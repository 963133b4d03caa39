package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/evteevakb/filestorage/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "filestorage",
	Short:   "Multi-user file storage server",
	Long: `filestorage lets users register, obtain a bearer token and upload,
list and download their own files. File contents live in a local
directory or an S3-compatible bucket; users, tokens and file records
live in SQLite or PostgreSQL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	flags.String("env", "", "environment: dev, prod (env: FILESTORAGE_ENV)")
	flags.String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: FILESTORAGE_DATABASE_TYPE)")
	flags.String("db-dsn", "", "database connection string (default: filestorage.db, env: FILESTORAGE_DATABASE_DSN)")
	flags.String("storage-type", "", "storage backend: filesystem, s3 (default: filesystem, env: FILESTORAGE_STORAGE_TYPE)")
	flags.String("storage-path", "", "storage directory path (default: ./data, env: FILESTORAGE_STORAGE_PATH)")
	flags.String("s3-endpoint", "", "S3 endpoint URL (env: FILESTORAGE_STORAGE_S3_ENDPOINT)")
	flags.String("s3-bucket", "", "S3 bucket name (env: FILESTORAGE_STORAGE_S3_BUCKET)")
	flags.String("log-level", "", "log level: debug, info, warn, error (default: info, env: FILESTORAGE_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
