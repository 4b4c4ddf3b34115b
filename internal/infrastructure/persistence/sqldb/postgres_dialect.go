package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/persistence/sqldb/migrations"
	"github.com/pressly/goose/v3"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.PostgresFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (d *PostgresDialect) UpsertValuation(ctx context.Context, tx *sql.Tx, r *domain.ValuationResult, at time.Time) error {
	query := `
		INSERT INTO instrument_valuations (name, cycle_id, quantity, currency, average_acquisition_price, current_price, purchase_value, sale_value, error_kind, error_message, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (name) DO UPDATE SET
			cycle_id = EXCLUDED.cycle_id,
			quantity = EXCLUDED.quantity,
			currency = EXCLUDED.currency,
			average_acquisition_price = COALESCE(EXCLUDED.average_acquisition_price, instrument_valuations.average_acquisition_price),
			current_price = COALESCE(EXCLUDED.current_price, instrument_valuations.current_price),
			purchase_value = COALESCE(EXCLUDED.purchase_value, instrument_valuations.purchase_value),
			sale_value = COALESCE(EXCLUDED.sale_value, instrument_valuations.sale_value),
			error_kind = EXCLUDED.error_kind,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
	`
	_, err := tx.ExecContext(ctx, query, valuationArgs(r, at)...)
	return err
}

func (d *PostgresDialect) UpsertSummary(ctx context.Context, tx *sql.Tx, s *domain.PortfolioSummary) error {
	query := `
		INSERT INTO portfolio_summary (id, cycle_id, base_currency, total_purchase_value, total_sale_value, profit_loss, succeeded, failed, valued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			cycle_id = EXCLUDED.cycle_id,
			base_currency = EXCLUDED.base_currency,
			total_purchase_value = EXCLUDED.total_purchase_value,
			total_sale_value = EXCLUDED.total_sale_value,
			profit_loss = EXCLUDED.profit_loss,
			succeeded = EXCLUDED.succeeded,
			failed = EXCLUDED.failed,
			valued_at = EXCLUDED.valued_at
		WHERE portfolio_summary.valued_at <= EXCLUDED.valued_at
	`
	_, err := tx.ExecContext(ctx, query, summaryArgs(s)...)
	return err
}
