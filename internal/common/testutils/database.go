package testutils

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer is a disposable PostgreSQL server.
type PostgresContainer struct {
	DSN string

	User     string
	Password string
	Name     string
	Host     string
	Port     int
}

// StartPostgresContainer starts a PostgreSQL container terminated at the end of the test.
// The test is skipped in short mode or off Linux.
func StartPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	const (
		user     = "postgres"
		password = "postgres"
		name     = "backoffice"
	)

	if testing.Short() {
		t.Skip("Skipping PostgreSQL container test in short mode")
	}
	if runtime.GOOS != "linux" {
		t.Skip("Skipping PostgreSQL container test on non-Linux OS")
	}

	ctx := t.Context()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       name,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err, "Setup: failed to start PostgreSQL container")
	testcontainers.CleanupContainer(t, container)

	host, err := container.Host(ctx)
	require.NoError(t, err, "Setup: failed to get container host")
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err, "Setup: failed to get mapped port")

	return &PostgresContainer{
		DSN:      fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port.Port(), name),
		User:     user,
		Password: password,
		Name:     name,
		Host:     host,
		Port:     port.Int(),
	}
}
