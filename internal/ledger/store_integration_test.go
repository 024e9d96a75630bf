package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDatabase starts a disposable Postgres container and applies the
// run_history migration, mirroring the teacher's own integration test setup.
func setupTestDatabase(ctx context.Context, t *testing.T) (*pgcontainer.PostgresContainer, *Connection) {
	t.Helper()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("bioetl_test"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := NewConnection(Config{DSN: connStr})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("NewConnection() error = %v", err)
	}

	if err := runTestMigrations(conn.DB); err != nil {
		_ = conn.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("runTestMigrations() error = %v", err)
	}

	return container, conn
}

// runTestMigrations applies every migration under the project-root
// migrations/ directory, relative to this package.
func runTestMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", postgresDriver, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func TestStore_RecordStartThenFinish_RoundTripsThroughFindByRunID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, conn := setupTestDatabase(ctx, t)

	defer func() {
		_ = conn.Close()
		_ = container.Terminate(ctx)
	}()

	store := NewStore(conn, nil)

	started := time.Now().UTC().Truncate(time.Second)

	store.RecordStart(ctx, Run{
		RunID:      "run-001",
		Release:    "2026.07",
		ConfigHash: "deadbeef",
		CommitSHA:  "abc123",
		StartedAt:  started,
	})

	found, err := store.FindByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, found.Status)
	require.Nil(t, found.FinishedAt)

	finished := started.Add(2 * time.Minute)

	store.RecordFinish(ctx, Run{
		RunID:      "run-001",
		FinishedAt: &finished,
		Status:     StatusSucceeded,
		RowCount:   4200,
		Checksums:  map[string]string{"molecule.csv": "abcd1234"},
	})

	found, err = store.FindByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, found.Status)
	require.Equal(t, 4200, found.RowCount)
	require.Equal(t, "abcd1234", found.Checksums["molecule.csv"])
	require.NotNil(t, found.FinishedAt)
}

func TestStore_FindByRunID_ReturnsErrRunNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, conn := setupTestDatabase(ctx, t)

	defer func() {
		_ = conn.Close()
		_ = container.Terminate(ctx)
	}()

	store := NewStore(conn, nil)

	_, err := store.FindByRunID(ctx, "does-not-exist")
	require.ErrorIs(t, err, ErrRunNotFound)
}
