package domain

import "fmt"

// SelectPrice picks the quote to value an instrument at. The sale-side quote
// wins when positive; a market without a sale order still has a standing buy quote.
func SelectPrice(buy, sale Decimal) (Decimal, error) {
	if sale.IsPositive() {
		return sale, nil
	}
	if buy.IsPositive() {
		return buy, nil
	}
	return Zero, fmt.Errorf("%w: buy %s, sale %s", ErrNoPriceAvailable, buy, sale)
}
