package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// IntegrationSuite spins up a Postgres container with the schema applied.
type IntegrationSuite struct {
	T  *testing.T
	DB *sql.DB

	pgContainer *postgres.PostgresContainer
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("doculens_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	// Run Migrations
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	migrationPath := fmt.Sprintf("file://%s/../../migrations", basepath)

	m, err := migrate.New(migrationPath, connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.DB != nil {
		s.DB.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
}
