package domain

import (
	"fmt"
	"net/url"
)

// Instrument is one held position to revalue every cycle.
type Instrument struct {
	Name                    string   `json:"name"`
	Quantity                int64    `json:"quantity"`
	Locator                 string   `json:"locator"`
	Currency                Currency `json:"currency"`
	AverageAcquisitionPrice Decimal  `json:"average_acquisition_price"`
}

func NewInstrument(name string, quantity int64, locator string, currency Currency, averagePrice Decimal) Instrument {
	return Instrument{
		Name:                    name,
		Quantity:                quantity,
		Locator:                 locator,
		Currency:                currency,
		AverageAcquisitionPrice: averagePrice,
	}
}

func (i Instrument) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInstrument)
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("%w: %s: quantity must be positive, got %d", ErrInvalidInstrument, i.Name, i.Quantity)
	}
	u, err := url.Parse(i.Locator)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s: locator %q is not an absolute URL", ErrInvalidInstrument, i.Name, i.Locator)
	}
	if i.Currency == "" {
		return fmt.Errorf("%w: %s: currency is required", ErrInvalidInstrument, i.Name)
	}
	if !i.AverageAcquisitionPrice.IsPositive() {
		return fmt.Errorf("%w: %s: average acquisition price must be positive, got %s", ErrInvalidInstrument, i.Name, i.AverageAcquisitionPrice)
	}
	return nil
}
