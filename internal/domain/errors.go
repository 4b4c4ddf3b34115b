package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a single instrument could not be valued.
type ErrorKind string

const (
	KindFetch            ErrorKind = "fetch_error"
	KindMissingMarker    ErrorKind = "missing_marker"
	KindPriceParse       ErrorKind = "price_parse_error"
	KindNoPriceAvailable ErrorKind = "no_price_available"
	KindUnknown          ErrorKind = "unknown"
)

var (
	ErrFetch             = errors.New("fetch failed")
	ErrMissingMarker     = errors.New("price markers not found")
	ErrPriceParse        = errors.New("price could not be parsed")
	ErrNoPriceAvailable  = errors.New("no positive price available")
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrInvalidInstrument = errors.New("invalid instrument")
)

// PriceParseError carries the raw text that failed to parse.
type PriceParseError struct {
	Raw string
	Err error
}

func (e *PriceParseError) Error() string {
	return fmt.Sprintf("%s: %q: %v", ErrPriceParse, e.Raw, e.Err)
}

func (e *PriceParseError) Unwrap() []error {
	return []error{ErrPriceParse, e.Err}
}

// InstrumentError ties a failure to the instrument it happened for.
type InstrumentError struct {
	Instrument string
	Kind       ErrorKind
	Err        error
}

// NewInstrumentError wraps err for the named instrument, classifying it with KindOf.
func NewInstrumentError(instrument string, err error) *InstrumentError {
	return &InstrumentError{
		Instrument: instrument,
		Kind:       KindOf(err),
		Err:        err,
	}
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Instrument, e.Kind, e.Err)
}

func (e *InstrumentError) Unwrap() error {
	return e.Err
}

// KindOf maps an error chain onto the per-instrument taxonomy.
func KindOf(err error) ErrorKind {
	var ie *InstrumentError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ie):
		return ie.Kind
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrMissingMarker):
		return KindMissingMarker
	case errors.Is(err, ErrPriceParse):
		return KindPriceParse
	case errors.Is(err, ErrNoPriceAvailable):
		return KindNoPriceAvailable
	default:
		return KindUnknown
	}
}
