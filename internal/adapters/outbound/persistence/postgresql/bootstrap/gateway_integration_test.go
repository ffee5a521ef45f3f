//go:build integration

package bootstrap

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
)

func TestPersistenceBootstrapGatewayIntegration(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TEST_DATABASE_URL to run integration test")
	}

	resetDatabaseForMigrations(t, databaseURL)
	gateway := NewGateway(databaseURL, "integration-target", filepath.Join("..", "migrations"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.Nil(t, gateway.CheckReadiness(ctx))
	require.Nil(t, gateway.RunMigrations(ctx))
	// A second run reports no change and still succeeds.
	require.Nil(t, gateway.RunMigrations(ctx))

	db, err := sql.Open("pgx", databaseURL)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"user_balances", "deposits", "withdrawals", "audit_outbox_events"} {
		var exists bool
		err := db.QueryRowContext(ctx, `
SELECT EXISTS (
  SELECT 1 FROM information_schema.tables
  WHERE table_schema = 'app' AND table_name = $1
)`, table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, table)
	}
}

func resetDatabaseForMigrations(t *testing.T, databaseURL string) {
	t.Helper()

	parsed, err := url.Parse(databaseURL)
	require.NoError(t, err)
	host := strings.ToLower(parsed.Hostname())
	dbName := strings.ToLower(strings.TrimPrefix(parsed.Path, "/"))
	if (host != "localhost" && host != "127.0.0.1" && host != "postgres") || !strings.Contains(dbName, "test") {
		t.Fatalf("unsafe TEST_DATABASE_URL for destructive integration reset: host=%q db=%q", host, dbName)
	}

	db, err := sql.Open("pgx", databaseURL)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(context.Background(), `
DROP SCHEMA IF EXISTS app CASCADE;
DROP TABLE IF EXISTS schema_migrations;
`)
	require.NoError(t, err)
}
