package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jmanzanog/portfolio-valuator/internal/domain"
	"gopkg.in/yaml.v3"
)

// Portfolio is the validated content of a portfolio file.
type Portfolio struct {
	Normalizer *domain.Normalizer
	Registry   *domain.Registry
}

type portfolioFile struct {
	BaseCurrency string                   `yaml:"base_currency"`
	Rates        map[string]decimalString `yaml:"rates"`
	Instruments  []instrumentEntry        `yaml:"instruments"`
}

type instrumentEntry struct {
	Name         string        `yaml:"name"`
	Quantity     int64         `yaml:"quantity"`
	Locator      string        `yaml:"locator"`
	Currency     string        `yaml:"currency"`
	AveragePrice decimalString `yaml:"average_price"`
}

// decimalString decodes a YAML scalar from its source text, so "10.4" and
// 10.4 both yield the exact decimal rather than a float.
type decimalString struct {
	domain.Decimal
}

func (d *decimalString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a decimal number", node.Line)
	}
	v, err := domain.NewDecimalFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Decimal = v
	return nil
}

// LoadPortfolio reads and validates the portfolio file at path.
func LoadPortfolio(path string) (*Portfolio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	p, err := ParsePortfolio(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func ParsePortfolio(r io.Reader) (*Portfolio, error) {
	var file portfolioFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("portfolio file is empty")
		}
		return nil, fmt.Errorf("decoding portfolio: %w", err)
	}

	base, err := domain.ParseCurrency(file.BaseCurrency)
	if err != nil {
		return nil, fmt.Errorf("base_currency: %w", err)
	}

	rates := make(map[domain.Currency]domain.Decimal, len(file.Rates))
	for code, rate := range file.Rates {
		c, err := domain.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("rates: %w", err)
		}
		rates[c] = rate.Decimal
	}

	normalizer, err := domain.NewNormalizer(base, rates)
	if err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}

	if len(file.Instruments) == 0 {
		return nil, errors.New("no instruments configured")
	}

	instruments := make([]domain.Instrument, 0, len(file.Instruments))
	for idx, e := range file.Instruments {
		c, err := domain.ParseCurrency(e.Currency)
		if err != nil {
			return nil, fmt.Errorf("instrument #%d (%s): %w", idx+1, e.Name, err)
		}
		instruments = append(instruments, domain.NewInstrument(e.Name, e.Quantity, e.Locator, c, e.AveragePrice.Decimal))
	}

	registry, err := domain.NewRegistry(instruments, normalizer)
	if err != nil {
		return nil, err
	}

	return &Portfolio{Normalizer: normalizer, Registry: registry}, nil
}
