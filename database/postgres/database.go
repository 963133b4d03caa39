// Package postgres implements the filestorage repositories on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evteevakb/filestorage"
)

type DB struct {
	pool *pgxpool.Pool
}

// Connect creates a connection pool. It does not contact the server;
// call Ping to verify the DSN.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping verifies the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate applies the embedded goose migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.pool)
}

// Validate checks that the database schema matches expected structure.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool)
}

func (d *DB) Users() filestorage.UserRepo {
	return &userRepo{pool: d.pool}
}

func (d *DB) Tokens() filestorage.TokenRepo {
	return &tokenRepo{pool: d.pool}
}

func (d *DB) Files() filestorage.FileRepo {
	return &fileRepo{pool: d.pool}
}

// Close closes the database connection pool.
func (d *DB) Close() error {
	d.pool.Close()
	return nil
}
