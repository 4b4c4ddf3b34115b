package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPrice(t *testing.T) {
	testCases := []struct {
		name      string
		buy       string
		sale      string
		expected  string
		expectErr bool
	}{
		{"sale preferred", "10.5", "12.0", "12.0", false},
		{"falls back to buy", "10.5", "0", "10.5", false},
		{"negative sale falls back to buy", "10.5", "-2", "10.5", false},
		{"both zero", "0", "0", "", true},
		{"zero buy, negative sale", "0", "-1", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectPrice(mustDecimalFromString(tc.buy), mustDecimalFromString(tc.sale))
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrNoPriceAvailable)
				assert.Equal(t, KindNoPriceAvailable, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(mustDecimalFromString(tc.expected)), "expected %s, got %s", tc.expected, got)
		})
	}
}
