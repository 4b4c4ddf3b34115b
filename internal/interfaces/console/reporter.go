// Package console prints valuation results and cycle summaries in a
// human-readable block layout.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// Reporter writes to out. Instrument values are already in base, which is
// printed as their currency suffix.
type Reporter struct {
	mu       sync.Mutex
	out      io.Writer
	base     domain.Currency
	location *time.Location
}

func NewReporter(out io.Writer, base domain.Currency) *Reporter {
	return &Reporter{out: out, base: base, location: time.Local}
}

// SetLocation changes the zone used for summary timestamps.
func (r *Reporter) SetLocation(loc *time.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = loc
}

func (r *Reporter) ReportValuation(ctx context.Context, result domain.ValuationResult) {
	var block string
	if result.Failed() {
		block = fmt.Sprintf("\n%s\nError: %s\n", result.Name, describeFailure(result.Err))
	} else {
		cur := r.base
		block = fmt.Sprintf("\n%s\nAmount: %d\nAverage Cost: %s (%s)\nCurrent Price: %s (%s)\nPurchase Value: %s (%s)\nSale Value: %s (%s)\n",
			result.Name,
			result.Quantity,
			result.AverageAcquisitionPrice.StringFixed(2), cur,
			result.CurrentPrice.StringFixed(2), cur,
			result.PurchaseValue.StringFixed(2), cur,
			result.SaleValue.StringFixed(2), cur,
		)
	}
	r.write(ctx, block)
}

// describeFailure drops the instrument name carried by InstrumentError, since
// the block already starts with it.
func describeFailure(err error) string {
	var ie *domain.InstrumentError
	if errors.As(err, &ie) {
		return fmt.Sprintf("[%s] %v", ie.Kind, ie.Err)
	}
	return err.Error()
}

func (r *Reporter) ReportSummary(ctx context.Context, summary domain.PortfolioSummary) {
	base := summary.BaseCurrency
	r.mu.Lock()
	at := summary.Timestamp.In(r.location).Format(timestampLayout)
	r.mu.Unlock()

	block := fmt.Sprintf("\nPortfolio Purchase Value: %s (%s)\nPortfolio Sale Value:     %s (%s)\n\nP/L: %s (%s)\nValued: %d ok, %d failed at %s\n",
		summary.TotalPurchaseValue.StringFixed(2), base,
		summary.TotalSaleValue.StringFixed(2), base,
		summary.ProfitLoss.StringFixed(2), base,
		summary.Succeeded, summary.Failed, at,
	)
	r.write(ctx, block)
}

func (r *Reporter) write(ctx context.Context, block string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.out, block); err != nil {
		slog.WarnContext(ctx, "Failed to write report", "error", err)
	}
}
