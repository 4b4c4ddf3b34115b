package nordnet

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/marketdata"
	"github.com/jmanzanog/portfolio-valuator/internal/infrastructure/marketdata/htmlnodes"
)

const (
	// DefaultMarker is the class the instrument page puts on quoted prices.
	DefaultMarker = "bQbnak"
	// DefaultBuyPrefix strips the "Köp" label in front of the buy-side quote.
	DefaultBuyPrefix = 3
	// DefaultSalePrefix strips the "Sälj" label in front of the sale-side quote.
	DefaultSalePrefix = 4
)

// Extractor reads the buy and sale quotes from an instrument page.
type Extractor struct {
	marker     string
	buyPrefix  int
	salePrefix int
}

func NewExtractor() *Extractor {
	return NewExtractorWithMarker(DefaultMarker, DefaultBuyPrefix, DefaultSalePrefix)
}

// NewExtractorWithMarker is for pages that changed their markup.
func NewExtractorWithMarker(marker string, buyPrefix, salePrefix int) *Extractor {
	return &Extractor{
		marker:     marker,
		buyPrefix:  buyPrefix,
		salePrefix: salePrefix,
	}
}

// Extract returns the sale-side quote, or the buy-side quote when there is no
// positive sale quote.
func (e *Extractor) Extract(name, content string) (domain.Decimal, error) {
	nodes, err := htmlnodes.FindByClass(content, e.marker)
	if err != nil {
		return domain.Zero, fmt.Errorf("%w: %s: %w", domain.ErrMissingMarker, name, err)
	}
	if len(nodes) < 2 {
		return domain.Zero, fmt.Errorf("%w: %s: found %d of 2 %q nodes", domain.ErrMissingMarker, name, len(nodes), e.marker)
	}

	buy, err := parseQuote(nodes[0], e.buyPrefix)
	if err != nil {
		return domain.Zero, fmt.Errorf("buy quote of %s: %w", name, err)
	}
	sale, err := parseQuote(nodes[1], e.salePrefix)
	if err != nil {
		return domain.Zero, fmt.Errorf("sale quote of %s: %w", name, err)
	}

	price, err := domain.SelectPrice(buy, sale)
	if err != nil {
		return domain.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return price, nil
}

// parseQuote turns text like "Sälj11,42" into 11.42. The label is a fixed
// number of runes; the number uses a decimal comma and may carry spaces as
// thousands separators.
func parseQuote(raw string, prefix int) (domain.Decimal, error) {
	text := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	runes := []rune(text)
	if len(runes) <= prefix {
		return domain.Zero, &domain.PriceParseError{Raw: raw, Err: fmt.Errorf("shorter than %d character label", prefix)}
	}

	number := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(runes[prefix:]))

	d, err := domain.NewDecimalFromString(number)
	if err != nil {
		return domain.Zero, &domain.PriceParseError{Raw: raw, Err: err}
	}
	return d, nil
}

// Compile-time check that Extractor implements PriceExtractor.
var _ marketdata.PriceExtractor = (*Extractor)(nil)
