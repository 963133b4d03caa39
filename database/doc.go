// Package database provides a unified interface for connecting to metadata backends.
//
// # Supported Backends
//
//   - PostgreSQL: Production backend using a pgx connection pool
//   - SQLite: Lightweight backend for development and single-node deployments
//
// Both backends create the users, tokens and files tables through embedded
// goose migrations and validate the resulting schema before use.
//
// # Usage
//
//	cfg := database.Config{
//	    Type: "sqlite",
//	    DSN:  "filestorage.db",
//	}
//
//	db, err := database.Open(ctx, cfg, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	auth := filestorage.NewAuthService(db.Users(), db.Tokens(), filestorage.AuthConfig{})
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
