//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema is the full service schema, mirrored from the store doc comments.
const schema = `
CREATE TABLE IF NOT EXISTS balances (
    account TEXT PRIMARY KEY,
    balance NUMERIC(78,0) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS account_windows (
    account          TEXT PRIMARY KEY,
    window_start     TIMESTAMPTZ NOT NULL,
    amount_in_window NUMERIC(78,0) NOT NULL DEFAULT 0,
    transfer_count   BIGINT NOT NULL DEFAULT 0,
    exempt           BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS burn_state (
    id              SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    total_burned    NUMERIC(78,0) NOT NULL DEFAULT 0,
    last_burn_time  TIMESTAMPTZ,
    first_burn_done BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS vesting_grants (
    beneficiary            TEXT PRIMARY KEY,
    total_allocation       NUMERIC(78,0) NOT NULL,
    unlock_pct             BIGINT NOT NULL,
    start_time             TIMESTAMPTZ NOT NULL,
    cliff_seconds          BIGINT NOT NULL,
    vesting_seconds        BIGINT NOT NULL,
    initial_claimed        BOOLEAN NOT NULL DEFAULT FALSE,
    initial_unlock_claimed NUMERIC(78,0) NOT NULL DEFAULT 0,
    total_claimed          NUMERIC(78,0) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS timelock_actions (
    id           TEXT PRIMARY KEY,
    requester    TEXT NOT NULL,
    requested_at TIMESTAMPTZ NOT NULL,
    scheduled_at TIMESTAMPTZ NOT NULL,
    deadline     TIMESTAMPTZ NOT NULL,
    executed     BOOLEAN NOT NULL DEFAULT FALSE,
    payload      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS operator_budgets (
    operator   TEXT PRIMARY KEY,
    day_anchor TIMESTAMPTZ NOT NULL,
    used_today NUMERIC(78,0) NOT NULL DEFAULT 0
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// service schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new PostgreSQL container and applies the
// schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("aurum_test"),
		tcpostgres.WithUsername("aurum"),
		tcpostgres.WithPassword("aurum"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", strings.Join(tables, ", ")))
	return err
}
