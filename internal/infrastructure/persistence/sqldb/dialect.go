package sqldb

import (
	"context"
	"database/sql"
	"time"
	"unicode/utf8"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

// Dialect hides the SQL differences between the supported stores. Both
// upserts keep a single row per key: the store only ever holds the latest
// state, never history.
type Dialect interface {
	Name() string
	Migrate(ctx context.Context, db *sql.DB) error
	UpsertValuation(ctx context.Context, tx *sql.Tx, r *domain.ValuationResult, at time.Time) error
	UpsertSummary(ctx context.Context, tx *sql.Tx, s *domain.PortfolioSummary) error
}

// summaryRowID is the key of the only row in portfolio_summary.
const summaryRowID = 1

const maxErrorMessageLen = 1000

// valuationArgs returns the column values shared by every dialect, in table
// order. Price columns are NULL for failed results so the upsert can keep the
// last known prices.
func valuationArgs(r *domain.ValuationResult, at time.Time) []any {
	var avg, price, purchase, sale, kind, msg any
	if r.Failed() {
		kind = string(r.ErrorKind())
		msg = truncateUTF8(r.Err.Error(), maxErrorMessageLen)
	} else {
		avg = r.AverageAcquisitionPrice
		price = r.CurrentPrice
		purchase = r.PurchaseValue
		sale = r.SaleValue
	}

	return []any{
		r.Name,
		r.CycleID,
		r.Quantity,
		string(r.Currency),
		avg,
		price,
		purchase,
		sale,
		kind,
		msg,
		at,
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func summaryArgs(s *domain.PortfolioSummary) []any {
	return []any{
		summaryRowID,
		s.CycleID,
		string(s.BaseCurrency),
		s.TotalPurchaseValue,
		s.TotalSaleValue,
		s.ProfitLoss,
		s.Succeeded,
		s.Failed,
		s.Timestamp,
	}
}
