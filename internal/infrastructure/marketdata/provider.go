package marketdata

import (
	"context"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

// PageFetcher retrieves the raw page behind a locator. Implementations must
// bound the time a single call can take and wrap failures with domain.ErrFetch.
type PageFetcher interface {
	Fetch(ctx context.Context, locator string) (string, error)
}

// PriceExtractor turns a fetched page into the instrument's current price in
// its native currency.
type PriceExtractor interface {
	Extract(name, content string) (domain.Decimal, error)
}
