package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/evteevakb/filestorage/database/internal"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func validateTableSchema(ctx context.Context, db *sql.DB, table internal.Table) error {
	exists, err := tableExists(ctx, db, table.Name)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}

	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", table.Name)
	}

	query := fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table.Name))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actualColumns := make(map[string]internal.ColumnInfo)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var dfltValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actualColumns[name] = internal.ColumnInfo{
			Name:     name,
			DataType: strings.ToLower(dataType),
			// INTEGER PRIMARY KEY aliases rowid and can never hold NULL.
			IsNullable: notNull == 0 && pk == 0,
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	return internal.DiffColumns(table.Name, table.Columns, actualColumns)
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	err := db.QueryRowContext(ctx, query, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}

var expectedTables = []internal.Table{
	{
		Name: "users",
		Columns: map[string]internal.ColumnInfo{
			"username":      {Name: "username", DataType: "text", IsNullable: false},
			"password_hash": {Name: "password_hash", DataType: "text", IsNullable: false},
			"created_at":    {Name: "created_at", DataType: "text", IsNullable: false},
		},
	},
	{
		Name: "tokens",
		Columns: map[string]internal.ColumnInfo{
			"username": {Name: "username", DataType: "text", IsNullable: false},
			"token":    {Name: "token", DataType: "text", IsNullable: false},
		},
	},
	{
		Name: "files",
		Columns: map[string]internal.ColumnInfo{
			"id":         {Name: "id", DataType: "integer", IsNullable: false},
			"username":   {Name: "username", DataType: "text", IsNullable: false},
			"filepath":   {Name: "filepath", DataType: "text", IsNullable: false},
			"created_at": {Name: "created_at", DataType: "text", IsNullable: false},
		},
	},
}

// ValidateSchema checks that users, tokens and files exist with the
// expected columns.
func ValidateSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range expectedTables {
		if err := validateTableSchema(ctx, db, table); err != nil {
			return fmt.Errorf("validate schema %s: %w", table.Name, err)
		}
	}

	return nil
}
