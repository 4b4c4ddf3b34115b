package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

var ErrNoSummary = errors.New("no summary stored")

// Repository pushes cycle outcomes to the SQL store. It satisfies the
// application Reporter contract and is meant to run behind an AsyncReporter.
type Repository struct {
	db  *DB
	now func() time.Time
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.Dialect.Migrate(ctx, r.db.DB)
}

func (r *Repository) SaveValuation(ctx context.Context, result domain.ValuationResult) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.db.Dialect.UpsertValuation(ctx, tx, &result, r.now()); err != nil {
			return fmt.Errorf("upsert valuation: %w", err)
		}
		return nil
	})
}

func (r *Repository) SaveSummary(ctx context.Context, summary domain.PortfolioSummary) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.db.Dialect.UpsertSummary(ctx, tx, &summary); err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}
		return nil
	})
}

func (r *Repository) ReportValuation(ctx context.Context, result domain.ValuationResult) {
	if err := r.SaveValuation(ctx, result); err != nil {
		slog.ErrorContext(ctx, "Failed to store valuation",
			"cycle_id", result.CycleID,
			"instrument", result.Name,
			"error", err,
		)
	}
}

func (r *Repository) ReportSummary(ctx context.Context, summary domain.PortfolioSummary) {
	if err := r.SaveSummary(ctx, summary); err != nil {
		slog.ErrorContext(ctx, "Failed to store summary", "cycle_id", summary.CycleID, "error", err)
	}
}

// LatestSummary returns the summary stored by the most recent cycle, possibly
// from a previous run of the process.
func (r *Repository) LatestSummary(ctx context.Context) (domain.PortfolioSummary, error) {
	query := r.rebind(`
        SELECT cycle_id, base_currency, total_purchase_value, total_sale_value, profit_loss, succeeded, failed, valued_at
        FROM portfolio_summary
        WHERE id = $1
    `)

	var s domain.PortfolioSummary
	var base string
	err := r.db.QueryRowContext(ctx, query, summaryRowID).Scan(
		&s.CycleID, &base, &s.TotalPurchaseValue, &s.TotalSaleValue, &s.ProfitLoss, &s.Succeeded, &s.Failed, &s.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PortfolioSummary{}, ErrNoSummary
	}
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("querying summary: %w", err)
	}
	s.BaseCurrency = domain.Currency(base)
	return s, nil
}

func (r *Repository) rebind(query string) string {
	if r.db.Dialect.Name() == "oracle" {
		for i := 9; i >= 1; i-- {
			query = strings.ReplaceAll(query, fmt.Sprintf("$%d", i), fmt.Sprintf(":%d", i))
		}
	}
	return query
}
