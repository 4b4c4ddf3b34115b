package domain

import "fmt"

// ValuationResult is the outcome of one instrument in one cycle. Monetary
// fields are in the base currency and are only meaningful when Err is nil.
type ValuationResult struct {
	CycleID                 string   `json:"cycle_id"`
	Name                    string   `json:"name"`
	Quantity                int64    `json:"quantity"`
	Currency                Currency `json:"currency"`
	AverageAcquisitionPrice Decimal  `json:"average_acquisition_price"`
	CurrentPrice            Decimal  `json:"current_price"`
	PurchaseValue           Decimal  `json:"purchase_value"`
	SaleValue               Decimal  `json:"sale_value"`
	Err                     error    `json:"-"`
}

// FailedValuation records err for inst without any price fields.
func FailedValuation(inst Instrument, err error) ValuationResult {
	return ValuationResult{
		Name:     inst.Name,
		Quantity: inst.Quantity,
		Currency: inst.Currency,
		Err:      err,
	}
}

func (r ValuationResult) Failed() bool {
	return r.Err != nil
}

// ErrorKind returns the failure classification, or "" for a success.
func (r ValuationResult) ErrorKind() ErrorKind {
	return KindOf(r.Err)
}

// Value converts the acquisition and current prices to the base currency
// exactly once and multiplies both by the held quantity.
func Value(inst Instrument, currentPrice Decimal, normalizer *Normalizer) (ValuationResult, error) {
	avgBase, err := normalizer.ToBase(inst.AverageAcquisitionPrice, inst.Currency)
	if err != nil {
		return ValuationResult{}, fmt.Errorf("normalizing average price of %s: %w", inst.Name, err)
	}
	priceBase, err := normalizer.ToBase(currentPrice, inst.Currency)
	if err != nil {
		return ValuationResult{}, fmt.Errorf("normalizing current price of %s: %w", inst.Name, err)
	}

	qty := NewDecimalFromInt(inst.Quantity)
	purchase, err := avgBase.Mul(qty)
	if err != nil {
		return ValuationResult{}, fmt.Errorf("purchase value of %s: %w", inst.Name, err)
	}
	sale, err := priceBase.Mul(qty)
	if err != nil {
		return ValuationResult{}, fmt.Errorf("sale value of %s: %w", inst.Name, err)
	}

	return ValuationResult{
		Name:                    inst.Name,
		Quantity:                inst.Quantity,
		Currency:                inst.Currency,
		AverageAcquisitionPrice: avgBase,
		CurrentPrice:            priceBase,
		PurchaseValue:           purchase,
		SaleValue:               sale,
	}, nil
}
