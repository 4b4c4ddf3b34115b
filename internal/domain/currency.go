package domain

import (
	"fmt"
	"strings"
)

// Currency is an upper-case currency code such as "SEK" or "EUR".
type Currency string

// ParseCurrency normalizes a user supplied code.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if c == "" {
		return "", fmt.Errorf("%w: empty code", ErrUnknownCurrency)
	}
	return c, nil
}

// Normalizer converts amounts into the base currency using fixed factors.
// One unit of a foreign currency equals rate units of the base currency.
type Normalizer struct {
	base  Currency
	rates map[Currency]Decimal
}

func NewNormalizer(base Currency, rates map[Currency]Decimal) (*Normalizer, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: base currency is required", ErrUnknownCurrency)
	}

	n := &Normalizer{
		base:  base,
		rates: make(map[Currency]Decimal, len(rates)),
	}
	for c, rate := range rates {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("conversion factor for %s must be positive, got %s", c, rate)
		}
		if c == base {
			if !rate.Equal(NewDecimalFromInt(1)) {
				return nil, fmt.Errorf("conversion factor for base currency %s must be 1, got %s", c, rate)
			}
			continue
		}
		n.rates[c] = rate
	}
	return n, nil
}

func (n *Normalizer) Base() Currency {
	return n.base
}

// Supports reports whether amounts in c can be converted.
func (n *Normalizer) Supports(c Currency) bool {
	if c == n.base {
		return true
	}
	_, ok := n.rates[c]
	return ok
}

// ToBase converts amount from currency into the base currency. No rounding is applied.
func (n *Normalizer) ToBase(amount Decimal, currency Currency) (Decimal, error) {
	if currency == n.base {
		return amount, nil
	}
	rate, ok := n.rates[currency]
	if !ok {
		return Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	converted, err := amount.Mul(rate)
	if err != nil {
		return Zero, fmt.Errorf("converting %s to %s: %w", currency, n.base, err)
	}
	return converted, nil
}
