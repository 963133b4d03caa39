package filestorage_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evteevakb/filestorage"
	"github.com/evteevakb/filestorage/database/sqlite"
	"github.com/evteevakb/filestorage/filesystem"
)

// newBackedServices wires the services to a migrated sqlite file and a
// filesystem store, both under a temp dir.
func newBackedServices(t *testing.T) (*filestorage.AuthService, *filestorage.FileService) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := sqlite.Connect(ctx, filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	store, err := filesystem.Open(filepath.Join(dir, "data"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	auth := filestorage.NewAuthService(db.Users(), db.Tokens(), filestorage.AuthConfig{BcryptCost: 4})
	files := filestorage.NewFileService(db.Files(), store, filestorage.ServiceConfig{})

	require.NoError(t, auth.Register(ctx, "alice", "pw123"))

	return auth, files
}

func TestFileService_Upload_FilesystemLayoutConflict(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		first  string
		second string
	}{
		{"file then nested file", "docs", "docs/a.txt"},
		{"nested file then parent", "n/b.txt", "n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, files := newBackedServices(t)

			_, err := files.Upload(ctx, "alice", tt.first, "", strings.NewReader("first"))
			require.NoError(t, err)

			_, err = files.Upload(ctx, "alice", tt.second, "", strings.NewReader("second"))
			assert.ErrorIs(t, err, filestorage.ErrPathConflict)

			records, err := files.List(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "alice/"+tt.first, records[0].Filepath)

			_, rc, err := files.Download(ctx, "alice", filestorage.Selector{Filepath: "alice/" + tt.first})
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "first", string(data))
		})
	}
}

func TestFileService_Upload_ConcurrentSamePath(t *testing.T) {
	_, files := newBackedServices(t)
	ctx := context.Background()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		others    []error
	)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := files.Upload(ctx, "alice", "shared.txt", "", strings.NewReader(fmt.Sprintf("writer %d", i)))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, filestorage.ErrPathConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)

	records, err := files.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAuthService_Authenticate_ConcurrentFirstLogin(t *testing.T) {
	auth, _ := newBackedServices(t)
	ctx := context.Background()

	const workers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens = map[string]int{}
		errs   []error
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := auth.Authenticate(ctx, "alice", "pw123")

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			tokens[token.Token]++
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Len(t, tokens, 1)
}
