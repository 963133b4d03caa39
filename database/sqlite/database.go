// Package sqlite implements the filestorage repositories on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/evteevakb/filestorage"

	_ "modernc.org/sqlite" // SQLite driver
)

// connPragmas run on every new connection. Foreign keys are off by default
// in SQLite and the cascades in the schema depend on them.
var connPragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
}

type DB struct {
	db *sql.DB
}

// Connect opens a SQLite database. dsn is a file path, ":memory:" or a
// "file:" URI; per-connection pragmas are appended to it.
//
// The pool holds a single connection, so a ":memory:" database is shared
// by every query.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &DB{db: db}, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(connPragmas, "&")
}

// Ping verifies the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate applies the embedded goose migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db)
}

// Validate checks that the database schema matches expected structure.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db)
}

func (d *DB) Users() filestorage.UserRepo {
	return &userRepo{db: d.db}
}

func (d *DB) Tokens() filestorage.TokenRepo {
	return &tokenRepo{db: d.db}
}

func (d *DB) Files() filestorage.FileRepo {
	return &fileRepo{db: d.db}
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
