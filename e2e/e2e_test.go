package e2e_test

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_SQLiteFilesystem(t *testing.T) {
	dir := t.TempDir()

	baseURL, _ := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		DBType:      "sqlite",
		DBDSN:       filepath.Join(dir, "filestorage.db"),
		StoragePath: filepath.Join(dir, "data"),
	})

	runFileStorageScenario(t, baseURL)
}

func TestE2E_PostgresS3(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	baseURL, _ := startServer(t, ServerConfig{
		Port:   getOpenPort(t),
		DBType: "postgres",
		DBDSN:  getSharedPostgresDatabase(t),
		S3: &S3Config{
			Endpoint:  getSharedMinio(t),
			Bucket:    "filestorage-e2e",
			AccessKey: minioUser,
			SecretKey: minioPassword,
		},
	})

	runFileStorageScenario(t, baseURL)
}

// runFileStorageScenario drives the whole API against a running server.
// Usernames are fixed, so it expects an empty database.
func runFileStorageScenario(t *testing.T, baseURL string) {
	client := newClient(baseURL)

	t.Run("register", func(t *testing.T) {
		assert.Equal(t, http.StatusCreated, client.register(t, "bob", "pw123").StatusCode)
		assert.Equal(t, http.StatusCreated, client.register(t, "alice", "secret").StatusCode)
	})

	t.Run("register duplicate", func(t *testing.T) {
		resp, body := client.postJSON(t, "/user/register", map[string]string{"username": "bob", "password": "other"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "username_taken", decodeErrorCode(t, body))
	})

	t.Run("register invalid body", func(t *testing.T) {
		resp, body := client.postJSON(t, "/user/register", map[string]string{"username": "carol"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "invalid_input", decodeErrorCode(t, body))
	})

	t.Run("auth failures", func(t *testing.T) {
		resp, body := client.postJSON(t, "/user/auth", map[string]string{"username": "bob", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "incorrect_password", decodeErrorCode(t, body))

		resp, body = client.postJSON(t, "/user/auth", map[string]string{"username": "nobody", "password": "pw"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "user_not_found", decodeErrorCode(t, body))
	})

	bob := client.login(t, "bob", "pw123")
	alice := client.login(t, "alice", "secret")

	t.Run("token is stable", func(t *testing.T) {
		again := client.login(t, "bob", "pw123")
		assert.Equal(t, bob.token, again.token)
	})

	t.Run("files require a token", func(t *testing.T) {
		resp, body := client.get(t, "/file_storage/files", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "unauthorized", decodeErrorCode(t, body))

		resp, _ = client.withToken("not-a-token").get(t, "/file_storage/files", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("empty list", func(t *testing.T) {
		assert.Empty(t, bob.list(t))
	})

	var report fileEntry

	t.Run("upload into directory", func(t *testing.T) {
		resp, body := bob.upload(t, "notes/2024/", "report.txt", []byte("quarterly numbers"))
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

		report = decodeEntry(t, body)
		assert.Equal(t, "bob/notes/2024/report.txt", report.Filepath)
		assert.Positive(t, report.ID)
	})

	t.Run("upload with explicit name", func(t *testing.T) {
		resp, body := bob.upload(t, "docs/readme.md", "ignored.txt", []byte("# readme"))
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		assert.Equal(t, "bob/docs/readme.md", decodeEntry(t, body).Filepath)
	})

	t.Run("upload without path", func(t *testing.T) {
		resp, body := alice.upload(t, "", "photo.png", []byte{0x89, 'P', 'N', 'G'})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		assert.Equal(t, "alice/photo.png", decodeEntry(t, body).Filepath)
	})

	t.Run("upload conflict", func(t *testing.T) {
		resp, body := bob.upload(t, "notes/2024/", "report.txt", []byte("again"))
		assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
		assert.Equal(t, "path_conflict", decodeErrorCode(t, body))
	})

	t.Run("upload invalid path", func(t *testing.T) {
		resp, body := bob.upload(t, "../escape.txt", "x.txt", []byte("x"))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "invalid_input", decodeErrorCode(t, body))
	})

	t.Run("list is per user", func(t *testing.T) {
		entries := bob.list(t)
		require.Len(t, entries, 2)
		assert.Equal(t, "bob/notes/2024/report.txt", entries[0].Filepath)
		assert.Equal(t, "bob/docs/readme.md", entries[1].Filepath)

		entries = alice.list(t)
		require.Len(t, entries, 1)
		assert.Equal(t, "alice/photo.png", entries[0].Filepath)
	})

	t.Run("download by filepath", func(t *testing.T) {
		resp, body := bob.get(t, "/file_storage/files/download", url.Values{"filepath": {report.Filepath}})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Equal(t, "quarterly numbers", string(body))
		assert.Equal(t, `attachment; filename="report.txt"`, resp.Header.Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	})

	t.Run("download by id", func(t *testing.T) {
		resp, body := bob.get(t, "/file_storage/files/download", url.Values{"file_id": {strconv.FormatInt(report.ID, 10)}})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Equal(t, "quarterly numbers", string(body))
	})

	t.Run("token in query", func(t *testing.T) {
		resp, body := client.get(t, "/file_storage/files/download", url.Values{
			"filepath": {report.Filepath},
			"token":    {bob.token},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Equal(t, "quarterly numbers", string(body))
	})

	t.Run("download of another user's file", func(t *testing.T) {
		resp, body := alice.get(t, "/file_storage/files/download", url.Values{"file_id": {strconv.FormatInt(report.ID, 10)}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not_found", decodeErrorCode(t, body))

		resp, _ = alice.get(t, "/file_storage/files/download", url.Values{"filepath": {report.Filepath}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("download without selector", func(t *testing.T) {
		resp, body := bob.get(t, "/file_storage/files/download", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "missing_selector", decodeErrorCode(t, body))
	})

	t.Run("download missing file", func(t *testing.T) {
		resp, _ := bob.get(t, "/file_storage/files/download", url.Values{"filepath": {"bob/nope.txt"}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("ping", func(t *testing.T) {
		resp, body := client.get(t, "/service/ping", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Contains(t, string(body), `"db"`)
		assert.Contains(t, string(body), `"storage"`)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, body := client.get(t, "/metrics", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `filestorage_http_requests_total{method="POST",path="/file_storage/files/upload",status="201"}`)
	})
}

func TestE2E_PingReportsStorageFailure(t *testing.T) {
	dir := t.TempDir()
	storagePath := filepath.Join(dir, "data")

	baseURL, _ := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		DBType:      "sqlite",
		DBDSN:       filepath.Join(dir, "filestorage.db"),
		StoragePath: storagePath,
	})
	client := newClient(baseURL)

	require.NoError(t, os.RemoveAll(storagePath))

	resp, body := client.get(t, "/service/ping", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "service_unavailable", decodeErrorCode(t, body))
	assert.Contains(t, string(body), "storage")
}

func TestE2E_CLI(t *testing.T) {
	dir := t.TempDir()

	baseURL, configPath := startServer(t, ServerConfig{
		Port:        getOpenPort(t),
		DBType:      "sqlite",
		DBDSN:       filepath.Join(dir, "filestorage.db"),
		StoragePath: filepath.Join(dir, "data"),
	})
	client := newClient(baseURL)

	runCommand(t, configPath, "useradd", "--password", "pw123", "dave")
	dave := client.login(t, "dave", "pw123")

	src := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "img", "b.txt"), []byte("beta"), 0o644))

	t.Run("add", func(t *testing.T) {
		runCommand(t, configPath, "add", "--user", "dave", "--dest", "imported/", "-r", src)

		var paths []string
		for _, e := range dave.list(t) {
			paths = append(paths, e.Filepath)
		}
		assert.ElementsMatch(t, []string{"dave/imported/a.txt", "dave/imported/img/b.txt"}, paths)

		resp, body := dave.get(t, "/file_storage/files/download", url.Values{"filepath": {"dave/imported/img/b.txt"}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "beta", string(body))
	})

	t.Run("add skips existing", func(t *testing.T) {
		runCommand(t, configPath, "add", "--user", "dave", "--dest", "imported/", "-n", filepath.Join(src, "a.txt"))
		assert.Len(t, dave.list(t), 2)
	})

	t.Run("remove by prefix", func(t *testing.T) {
		runCommand(t, configPath, "remove", "--user", "dave", "--prefix", "dave/imported/img/")

		entries := dave.list(t)
		require.Len(t, entries, 1)
		assert.Equal(t, "dave/imported/a.txt", entries[0].Filepath)
	})

	t.Run("remove by id", func(t *testing.T) {
		entries := dave.list(t)
		require.Len(t, entries, 1)

		runCommand(t, configPath, "remove", "--user", "dave", fmt.Sprint(entries[0].ID))
		assert.Empty(t, dave.list(t))
	})
}
