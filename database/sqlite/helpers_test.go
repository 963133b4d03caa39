package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evteevakb/filestorage/database/sqlite"
)

// setupTestDB opens a private in-memory database, optionally migrating it.
func setupTestDB(t *testing.T, migrate bool) *sqlite.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:")
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	if migrate {
		require.NoError(t, db.Migrate(ctx), "failed to migrate")
	}

	return db
}
