// Package repotest holds behaviour tests shared by every repository backend.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evteevakb/filestorage"
)

// Repos is the subset of a database handle the tests need.
type Repos interface {
	Users() filestorage.UserRepo
	Tokens() filestorage.TokenRepo
	Files() filestorage.FileRepo
}

// Run exercises the repositories returned by open. open must return a
// freshly migrated, empty database for every call.
func Run(t *testing.T, open func(t *testing.T) Repos) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("tokens", func(t *testing.T) { testTokens(t, open(t)) })
	t.Run("files", func(t *testing.T) { testFiles(t, open(t)) })
}

func testUsers(t *testing.T, db Repos) {
	ctx := context.Background()
	users := db.Users()

	u, err := users.Create(ctx, "bob", "$2a$10$hash")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	assert.False(t, u.CreatedAt.IsZero())

	got, found, err := users.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	_, found, err = users.FindByUsername(ctx, "ghost")
	require.NoError(t, err, "missing user is not an error")
	assert.False(t, found)

	_, err = users.Create(ctx, "bob", "$2a$10$other")
	assert.ErrorIs(t, err, filestorage.ErrDuplicateUser)
}

func testTokens(t *testing.T, db Repos) {
	ctx := context.Background()

	_, err := db.Users().Create(ctx, "bob", "hash")
	require.NoError(t, err)
	_, err = db.Users().Create(ctx, "alice", "hash")
	require.NoError(t, err)

	tokens := db.Tokens()

	_, found, err := tokens.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, found)

	bobToken, err := tokens.Create(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", bobToken.Username)
	assert.Len(t, bobToken.Token, filestorage.TokenLength)

	got, found, err := tokens.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, bobToken, got)

	got, found, err = tokens.FindByToken(ctx, bobToken.Token)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bob", got.Username)

	_, err = tokens.Create(ctx, "bob")
	assert.ErrorIs(t, err, filestorage.ErrDuplicateUser, "one token per user")

	aliceToken, err := tokens.Create(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, bobToken.Token, aliceToken.Token)

	_, found, err = tokens.FindByToken(ctx, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.False(t, found)
}

func testFiles(t *testing.T, db Repos) {
	ctx := context.Background()

	_, err := db.Users().Create(ctx, "bob", "hash")
	require.NoError(t, err)
	_, err = db.Users().Create(ctx, "alice", "hash")
	require.NoError(t, err)

	files := db.Files()

	empty, err := files.ListByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first, err := files.Create(ctx, "bob", "bob/a.txt")
	require.NoError(t, err)
	assert.Positive(t, first.ID)
	assert.Equal(t, "bob", first.Username)
	assert.Equal(t, "bob/a.txt", first.Filepath)

	second, err := files.Create(ctx, "bob", "bob/notes/b.txt")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	aliceFile, err := files.Create(ctx, "alice", "alice/a.txt")
	require.NoError(t, err)

	_, err = files.Create(ctx, "bob", "bob/a.txt")
	assert.ErrorIs(t, err, filestorage.ErrDuplicatePath)

	list, err := files.ListByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	got, found, err := files.FindByFilepath(ctx, "bob", "bob/notes/b.txt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, second.ID, got.ID)

	got, found, err = files.FindByID(ctx, "bob", first.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bob/a.txt", got.Filepath)

	_, found, err = files.FindByID(ctx, "bob", aliceFile.ID)
	require.NoError(t, err)
	assert.False(t, found, "lookups are scoped to the owner")

	_, found, err = files.FindByFilepath(ctx, "bob", "alice/a.txt")
	require.NoError(t, err)
	assert.False(t, found, "lookups are scoped to the owner")

	err = files.Delete(ctx, "alice", first.ID)
	assert.ErrorIs(t, err, filestorage.ErrNotFound)

	require.NoError(t, files.Delete(ctx, "bob", first.ID))

	_, found, err = files.FindByID(ctx, "bob", first.ID)
	require.NoError(t, err)
	assert.False(t, found)

	err = files.Delete(ctx, "bob", first.ID)
	assert.ErrorIs(t, err, filestorage.ErrNotFound)
}
