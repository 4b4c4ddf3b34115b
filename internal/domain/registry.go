package domain

import "fmt"

// Registry is the immutable, ordered set of instruments valued each cycle.
type Registry struct {
	instruments []Instrument
}

// NewRegistry validates every instrument and checks that its currency can be
// normalized, so a cycle never meets an unconvertible amount.
func NewRegistry(instruments []Instrument, normalizer *Normalizer) (*Registry, error) {
	seen := make(map[string]struct{}, len(instruments))
	owned := make([]Instrument, 0, len(instruments))

	for idx, inst := range instruments {
		if err := inst.Validate(); err != nil {
			return nil, fmt.Errorf("instrument #%d: %w", idx+1, err)
		}
		if _, dup := seen[inst.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidInstrument, inst.Name)
		}
		if !normalizer.Supports(inst.Currency) {
			return nil, fmt.Errorf("instrument %q: %w: %s", inst.Name, ErrUnknownCurrency, inst.Currency)
		}
		seen[inst.Name] = struct{}{}
		owned = append(owned, inst)
	}

	return &Registry{instruments: owned}, nil
}

// Instruments returns a copy of the registry contents in declaration order.
func (r *Registry) Instruments() []Instrument {
	out := make([]Instrument, len(r.instruments))
	copy(out, r.instruments)
	return out
}

func (r *Registry) Len() int {
	return len(r.instruments)
}
