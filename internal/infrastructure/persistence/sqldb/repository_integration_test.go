package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	_ "github.com/sijms/go-ora/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *DB {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv("TEST_DB") == "oracle" {
		return setupOracle(t)
	}
	return setupPostgres(t)
}

func setupPostgres(t *testing.T) *DB {
	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	rawDB, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	db := New(rawDB, &PostgresDialect{})
	if err := db.Dialect.Migrate(ctx, rawDB); err != nil {
		t.Fatalf("failed to migrate: %s", err)
	}
	return db
}

func setupOracle(t *testing.T) *DB {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "gvenzl/oracle-free:23.3-slim-faststart",
		ExposedPorts: []string{"1521/tcp"},
		Env:          map[string]string{"ORACLE_PASSWORD": "password"},
		WaitingFor:   wait.ForLog("DATABASE IS READY TO USE").WithStartupTimeout(120 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start oracle container: %s", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	port, err := c.MappedPort(ctx, "1521")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get host: %v", err)
	}

	dsn := fmt.Sprintf("oracle://system:password@%s:%s/FREE", host, port.Port())
	rawDB, err := sql.Open("oracle", dsn)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	db := New(rawDB, &OracleDialect{})
	if err := db.Dialect.Migrate(ctx, rawDB); err != nil {
		t.Fatalf("failed to migrate: %s", err)
	}
	return db
}

func currentPriceOf(t *testing.T, db *DB, name string) (string, sql.NullString) {
	t.Helper()
	repo := NewRepository(db)
	query := repo.rebind("SELECT current_price, error_kind FROM instrument_valuations WHERE name = $1")

	var price domain.Decimal
	var kind sql.NullString
	require.NoError(t, db.QueryRowContext(context.Background(), query, name).Scan(&price, &kind))
	return price.StringFixed(2), kind
}

func TestRepository_Integration_ValuationUpserts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveValuation(ctx, successResult()))

	price, kind := currentPriceOf(t, db, "X")
	assert.Equal(t, "62.40", price)
	assert.False(t, kind.Valid)

	// A failed cycle records the error and keeps the last good price.
	failed := domain.FailedValuation(
		domain.Instrument{Name: "X", Quantity: 10, Currency: "EUR"},
		domain.NewInstrumentError("X", fmt.Errorf("%w: timeout", domain.ErrFetch)),
	)
	failed.CycleID = "cycle-2"
	require.NoError(t, repo.SaveValuation(ctx, failed))

	price, kind = currentPriceOf(t, db, "X")
	assert.Equal(t, "62.40", price)
	assert.Equal(t, "fetch_error", kind.String)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM instrument_valuations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRepository_Integration_SummaryKeepsLatest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.LatestSummary(ctx)
	require.ErrorIs(t, err, ErrNoSummary)

	first := testSummary()
	require.NoError(t, repo.SaveSummary(ctx, first))

	second := testSummary()
	second.CycleID = "cycle-2"
	second.ProfitLoss = domain.MustDecimal("-12.5")
	require.NoError(t, repo.SaveSummary(ctx, second))

	latest, err := repo.LatestSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cycle-2", latest.CycleID)
	assert.Equal(t, "-12.50", latest.ProfitLoss.StringFixed(2))
	assert.Equal(t, domain.Currency("SEK"), latest.BaseCurrency)
}

func TestRepository_Integration_OlderSummaryDoesNotReplaceNewer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	newer := testSummary()
	newer.CycleID = "cycle-new"
	newer.Timestamp = t0.Add(30 * time.Second)
	require.NoError(t, repo.SaveSummary(ctx, newer))

	// An overlapping cycle that started first finishes last.
	older := testSummary()
	older.CycleID = "cycle-old"
	older.Timestamp = t0
	require.NoError(t, repo.SaveSummary(ctx, older))

	latest, err := repo.LatestSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cycle-new", latest.CycleID)
}
