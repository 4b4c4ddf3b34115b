package domain

import (
	"fmt"
	"time"
)

// PortfolioSummary aggregates one cycle over the instruments that succeeded.
type PortfolioSummary struct {
	CycleID            string    `json:"cycle_id"`
	BaseCurrency       Currency  `json:"base_currency"`
	TotalPurchaseValue Decimal   `json:"total_purchase_value"`
	TotalSaleValue     Decimal   `json:"total_sale_value"`
	ProfitLoss         Decimal   `json:"profit_loss"`
	Succeeded          int       `json:"succeeded"`
	Failed             int       `json:"failed"`
	Timestamp          time.Time `json:"timestamp"`
}

// Summarize folds the collected results of a cycle. Failed results are
// counted but never contribute to the totals; the fold does not depend on
// the order of results.
func Summarize(cycleID string, base Currency, results []ValuationResult, at time.Time) (PortfolioSummary, error) {
	summary := PortfolioSummary{
		CycleID:            cycleID,
		BaseCurrency:       base,
		TotalPurchaseValue: Zero,
		TotalSaleValue:     Zero,
		ProfitLoss:         Zero,
		Timestamp:          at,
	}

	for _, r := range results {
		if r.Failed() {
			summary.Failed++
			continue
		}
		purchase, err := summary.TotalPurchaseValue.Add(r.PurchaseValue)
		if err != nil {
			return summary, fmt.Errorf("adding purchase value of %s: %w", r.Name, err)
		}
		sale, err := summary.TotalSaleValue.Add(r.SaleValue)
		if err != nil {
			return summary, fmt.Errorf("adding sale value of %s: %w", r.Name, err)
		}
		summary.TotalPurchaseValue = purchase
		summary.TotalSaleValue = sale
		summary.Succeeded++
	}

	pl, err := summary.TotalSaleValue.Sub(summary.TotalPurchaseValue)
	if err != nil {
		return summary, fmt.Errorf("computing profit/loss: %w", err)
	}
	summary.ProfitLoss = pl
	return summary, nil
}
