package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
	// terminators stop the containers started by the Postgres and S3 helpers.
	terminators []func()
)

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "filestorage-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	for _, terminate := range terminators {
		terminate()
	}
	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// S3Config points the server at an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// ServerConfig holds configuration for starting the filestorage server.
type ServerConfig struct {
	Port        int
	DBType      string // sqlite, postgres
	DBDSN       string
	StoragePath string    // filesystem storage when S3 is nil
	S3          *S3Config // s3 storage when set
}

// buildBinary compiles the filestorage binary once per test run.
// Returns the path to the compiled binary.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "filestorage")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/filestorage")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

// getProjectRoot returns the directory holding go.mod.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createConfigFile writes cfg as a YAML config file and returns its path.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	storage := map[string]any{"type": "filesystem", "path": cfg.StoragePath}
	if cfg.S3 != nil {
		storage = map[string]any{
			"type": "s3",
			"s3": map[string]any{
				"endpoint":       cfg.S3.Endpoint,
				"region":         "us-east-1",
				"bucket":         cfg.S3.Bucket,
				"access_key":     cfg.S3.AccessKey,
				"secret_key":     cfg.S3.SecretKey,
				"use_path_style": true,
				"create_bucket":  true,
			},
		}
	}

	doc := map[string]any{
		"env": "dev",
		"server": map[string]any{
			"port":            cfg.Port,
			"max_upload_size": 1 << 20,
			"request_timeout": "30s",
		},
		"service": map[string]any{
			"bcrypt_cost": 4,
		},
		"database": map[string]any{
			"type":         cfg.DBType,
			"dsn":          cfg.DBDSN,
			"auto_migrate": true,
		},
		"storage": storage,
		"log": map[string]any{
			"level": "error",
		},
	}

	data, err := yaml.Marshal(doc)
	require.NoError(t, err, "marshal config")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, data, 0o600), "write config file")

	return configPath
}

// runCommand runs a one-shot CLI command against the config and fails the
// test if it exits non-zero.
func runCommand(t *testing.T, configPath string, args ...string) string {
	t.Helper()

	binary := buildBinary(t)
	cmd := exec.Command(binary, append(args, "--config", configPath)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "%v: %s", args, output)

	return string(output)
}

// startServer starts the filestorage binary with the given configuration.
// Returns the base URL and the config path. The server is stopped when the
// test finishes.
func startServer(t *testing.T, cfg ServerConfig) (string, string) {
	t.Helper()

	binary := buildBinary(t)
	configPath := createConfigFile(t, cfg)

	runCommand(t, configPath, "migrate")

	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	require.NoError(t, cmd.Start(), "start server")

	t.Cleanup(func() {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = cmd.Wait()
		}
	})

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(t, baseURL, 15*time.Second)

	return baseURL, configPath
}

// waitForServer polls the server until it responds or times out.
func waitForServer(t *testing.T, baseURL string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/service/ping")
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err, "find open port")

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close(), "close port")

	return port
}

// apiClient wraps the HTTP API for tests.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// withToken returns a copy of the client that sends token.
func (c *apiClient) withToken(token string) *apiClient {
	cp := *c
	cp.token = token
	return &cp
}

func (c *apiClient) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func (c *apiClient) postJSON(t *testing.T, path string, v any) (*http.Response, []byte) {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return c.do(t, req)
}

func (c *apiClient) get(t *testing.T, path string, query url.Values) (*http.Response, []byte) {
	t.Helper()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)

	return c.do(t, req)
}

func (c *apiClient) register(t *testing.T, username, password string) *http.Response {
	t.Helper()
	resp, _ := c.postJSON(t, "/user/register", map[string]string{"username": username, "password": password})
	return resp
}

// login authenticates and returns a client carrying the issued token.
func (c *apiClient) login(t *testing.T, username, password string) *apiClient {
	t.Helper()

	resp, body := c.postJSON(t, "/user/auth", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var token struct {
		Username string `json:"username"`
		Token    string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &token))
	require.Equal(t, username, token.Username)
	require.Len(t, token.Token, 36)

	return c.withToken(token.Token)
}

func (c *apiClient) upload(t *testing.T, filepath, filename string, content []byte) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	target := c.baseURL + "/file_storage/files/upload"
	if filepath != "" {
		target += "?" + url.Values{"filepath": {filepath}}.Encode()
	}

	req, err := http.NewRequest(http.MethodPost, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(t, req)
}

type fileEntry struct {
	ID       int64  `json:"id"`
	Filepath string `json:"filepath"`
}

func (c *apiClient) list(t *testing.T) []fileEntry {
	t.Helper()

	resp, body := c.get(t, "/file_storage/files", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var entries []fileEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	return entries
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp.Error
}

func decodeEntry(t *testing.T, body []byte) fileEntry {
	t.Helper()

	var entry fileEntry
	require.NoError(t, json.Unmarshal(body, &entry), string(body))
	return entry
}
