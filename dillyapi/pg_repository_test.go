// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testPool connects to TEST_DATABASE_URL or starts a throwaway Postgres container
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	ctx := context.Background()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		container, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("big_dilly_test"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("password"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := container.Terminate(context.Background()); err != nil {
				t.Logf("Failed to terminate container: %v", err)
			}
		})

		dbURL, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, InitializeSchema(ctx, pool))
	return pool
}

func TestPgRepository_Contract(t *testing.T) {
	pool := testPool(t)
	runRepositoryContract(t, NewPgRepository(pool))
}

func TestPgRepository_SchemaIsIdempotent(t *testing.T) {
	pool := testPool(t)
	require.NoError(t, InitializeSchema(context.Background(), pool))
}

func TestPgRepository_RejectsUnknownTheme(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewPgRepository(pool)

	user, err := repo.CreateUser(ctx, "theme-check-"+uuid.NewString()+"@example.com", "hash")
	require.NoError(t, err)
	require.Error(t, repo.UpdateUserTheme(ctx, user.ID, "sepia"), "the theme column is constrained")
}
