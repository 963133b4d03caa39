package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evteevakb/filestorage/database/internal"
)

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, table internal.Table) error {
	exists, err := tableExists(ctx, pool, table.Name)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}

	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", table.Name)
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, table.Name)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actualColumns := make(map[string]internal.ColumnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = internal.ColumnInfo{
			Name:       name,
			DataType:   strings.ToLower(dataType),
			IsNullable: nullable == "YES",
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	return internal.DiffColumns(table.Name, table.Columns, actualColumns)
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = $1
		)
	`
	err := pool.QueryRow(ctx, query, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}

var expectedTables = []internal.Table{
	{
		Name: "users",
		Columns: map[string]internal.ColumnInfo{
			"username":      {Name: "username", DataType: "character varying", IsNullable: false},
			"password_hash": {Name: "password_hash", DataType: "character varying", IsNullable: false},
			"created_at":    {Name: "created_at", DataType: "timestamp with time zone", IsNullable: false},
		},
	},
	{
		Name: "tokens",
		Columns: map[string]internal.ColumnInfo{
			"username": {Name: "username", DataType: "character varying", IsNullable: false},
			"token":    {Name: "token", DataType: "character varying", IsNullable: false},
		},
	},
	{
		Name: "files",
		Columns: map[string]internal.ColumnInfo{
			"id":         {Name: "id", DataType: "bigint", IsNullable: false},
			"username":   {Name: "username", DataType: "character varying", IsNullable: false},
			"filepath":   {Name: "filepath", DataType: "character varying", IsNullable: false},
			"created_at": {Name: "created_at", DataType: "timestamp with time zone", IsNullable: false},
		},
	},
}

// ValidateSchema checks that users, tokens and files exist with the
// expected columns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range expectedTables {
		if err := validateTableSchema(ctx, pool, table); err != nil {
			return fmt.Errorf("validate schema %s: %w", table.Name, err)
		}
	}

	return nil
}
