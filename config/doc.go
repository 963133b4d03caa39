// Package config provides configuration loading and validation for filestorage.
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s), merged left-to-right
//  3. Environment variables (FILESTORAGE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// Keys map to environment variables with the FILESTORAGE_ prefix and dots
// replaced by underscores:
//   - server.port → FILESTORAGE_SERVER_PORT
//   - database.dsn → FILESTORAGE_DATABASE_DSN
//   - storage.s3.bucket → FILESTORAGE_STORAGE_S3_BUCKET
//
// # Validation
//
// The struct tags are checked with go-playground/validator. Storage settings
// are only required for the selected backend: storage.path for filesystem,
// storage.s3.bucket and storage.s3.region for s3.
package config
