package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/persistence/sqldb/migrations"
)

const oracleMigration = "oracle/20240601000000_valuations.sql"

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

// Migrate runs the embedded script statement by statement. goose has no
// go-ora integration, so objects that already exist are skipped instead.
func (d *OracleDialect) Migrate(ctx context.Context, db *sql.DB) error {
	content, err := migrations.OracleFS.ReadFile(oracleMigration)
	if err != nil {
		return fmt.Errorf("reading migration file: %w", err)
	}

	for _, stmt := range strings.Split(string(content), "/") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// ORA-00955: name is already used by an existing object
			if !strings.Contains(err.Error(), "ORA-00955") {
				return fmt.Errorf("migrating: %s: %w", stmt, err)
			}
		}
	}
	return nil
}

func (d *OracleDialect) UpsertValuation(ctx context.Context, tx *sql.Tx, r *domain.ValuationResult, at time.Time) error {
	query := `MERGE INTO instrument_valuations t
             USING (SELECT :1 AS name_val FROM dual) s
             ON (t.name = s.name_val)
             WHEN MATCHED THEN
               UPDATE SET
                 cycle_id = :2,
                 quantity = :3,
                 currency = :4,
                 average_acquisition_price = NVL(:5, t.average_acquisition_price),
                 current_price = NVL(:6, t.current_price),
                 purchase_value = NVL(:7, t.purchase_value),
                 sale_value = NVL(:8, t.sale_value),
                 error_kind = :9,
                 error_message = :10,
                 updated_at = :11
             WHEN NOT MATCHED THEN
               INSERT (name, cycle_id, quantity, currency, average_acquisition_price, current_price, purchase_value, sale_value, error_kind, error_message, updated_at)
               VALUES (:12, :13, :14, :15, :16, :17, :18, :19, :20, :21, :22)`

	// go-ora binds by position: the key, then every column for UPDATE, then again for INSERT.
	cols := valuationArgs(r, at)
	args := make([]any, 0, 2*len(cols))
	args = append(args, cols[0])
	args = append(args, cols[1:]...)
	args = append(args, cols...)

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (d *OracleDialect) UpsertSummary(ctx context.Context, tx *sql.Tx, s *domain.PortfolioSummary) error {
	query := `MERGE INTO portfolio_summary t
             USING (SELECT :1 AS id_val FROM dual) s
             ON (t.id = s.id_val)
             WHEN MATCHED THEN
               UPDATE SET
                 cycle_id = :2,
                 base_currency = :3,
                 total_purchase_value = :4,
                 total_sale_value = :5,
                 profit_loss = :6,
                 succeeded = :7,
                 failed = :8,
                 valued_at = :9
               WHERE t.valued_at <= :10
             WHEN NOT MATCHED THEN
               INSERT (id, cycle_id, base_currency, total_purchase_value, total_sale_value, profit_loss, succeeded, failed, valued_at)
               VALUES (:11, :12, :13, :14, :15, :16, :17, :18, :19)`

	// An older cycle finishing late leaves the newer row in place.
	cols := summaryArgs(s)
	args := make([]any, 0, 2*len(cols)+1)
	args = append(args, cols...)
	args = append(args, s.Timestamp)
	args = append(args, cols...)

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
