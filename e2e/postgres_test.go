package e2e_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

var (
	postgresOnce sync.Once
	postgresDSN  string
	postgresErr  error

	minioOnce     sync.Once
	minioEndpoint string
	minioErr      error
)

// getSharedPostgresDatabase returns the DSN of a PostgreSQL database shared
// by all E2E tests. The container is stopped in TestMain.
func getSharedPostgresDatabase(t *testing.T) string {
	t.Helper()

	postgresOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			postgresErr = fmt.Errorf("start postgres container: %w", err)
			return
		}
		terminators = append(terminators, func() { _ = testcontainers.TerminateContainer(pgContainer) })

		postgresDSN, postgresErr = pgContainer.ConnectionString(ctx, "sslmode=disable")
	})

	require.NoError(t, postgresErr)

	return postgresDSN
}

// getSharedMinio returns the endpoint of a MinIO server shared by all E2E
// tests.
func getSharedMinio(t *testing.T) string {
	t.Helper()

	minioOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "minio/minio:latest",
				ExposedPorts: []string{"9000/tcp"},
				Env: map[string]string{
					"MINIO_ROOT_USER":     minioUser,
					"MINIO_ROOT_PASSWORD": minioPassword,
				},
				Cmd:        []string{"server", "/data"},
				WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
			},
			Started: true,
		})
		if err != nil {
			minioErr = fmt.Errorf("start minio container: %w", err)
			return
		}
		terminators = append(terminators, func() { _ = testcontainers.TerminateContainer(container) })

		endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "http")
		if err != nil {
			minioErr = err
			return
		}
		minioEndpoint = endpoint
	})

	require.NoError(t, minioErr)

	return minioEndpoint
}
