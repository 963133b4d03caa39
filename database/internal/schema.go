// Package internal holds helpers shared by the SQL backends.
package internal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ColumnInfo struct {
	Name       string
	DataType   string
	IsNullable bool
}

// Table pairs a table name with the columns it must have.
type Table struct {
	Name    string
	Columns map[string]ColumnInfo
}

// DiffColumns compares the columns found in the database against the
// expected ones. Extra columns are ignored. Data types are compared
// case-insensitively.
func DiffColumns(tableName string, expected, actual map[string]ColumnInfo) error {
	var missingColumns []string
	var mismatchedColumns []string

	for colName, want := range expected {
		got, exists := actual[colName]
		if !exists {
			missingColumns = append(missingColumns, colName)
			continue
		}

		if !strings.EqualFold(got.DataType, want.DataType) {
			mismatchedColumns = append(mismatchedColumns,
				fmt.Sprintf("%s: expected %s, got %s", colName, want.DataType, got.DataType))
		}

		if got.IsNullable != want.IsNullable {
			mismatchedColumns = append(mismatchedColumns,
				fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", colName, want.IsNullable, got.IsNullable))
		}
	}

	if len(missingColumns) == 0 && len(mismatchedColumns) == 0 {
		return nil
	}

	// map iteration order is random
	sort.Strings(missingColumns)
	sort.Strings(mismatchedColumns)

	var errMsg strings.Builder
	fmt.Fprintf(&errMsg, "table %s schema validation failed:\n", tableName)

	if len(missingColumns) > 0 {
		fmt.Fprintf(&errMsg, "  missing columns: %s\n", strings.Join(missingColumns, ", "))
	}

	if len(mismatchedColumns) > 0 {
		fmt.Fprintf(&errMsg, "  mismatched columns:\n")
		for _, msg := range mismatchedColumns {
			fmt.Fprintf(&errMsg, "    - %s\n", msg)
		}
	}

	return errors.New(errMsg.String())
}
