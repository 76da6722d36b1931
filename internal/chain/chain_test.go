package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-registry/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want domain.ChainID
	}{
		{"eth", "eth"},
		{"ethereum", "eth"},
		{" Mainnet ", "eth"},
		{"matic", "polygon"},
		{"bsc", "bsc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unsupported(t *testing.T) {
	_, err := Parse("solana")
	if !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain, got %v", err)
	}
}

func TestIsSupported_OnlyCanonicalIDs(t *testing.T) {
	assert.True(t, IsSupported("eth"))
	assert.False(t, IsSupported("ethereum"))
	assert.False(t, IsSupported(""))
}

func TestParseList(t *testing.T) {
	got, err := ParseList("eth, bsc,ethereum,,")
	require.NoError(t, err)
	assert.Equal(t, []domain.ChainID{"eth", "bsc"}, got)

	all, err := ParseList("")
	require.NoError(t, err)
	assert.Equal(t, All(), all)

	_, err = ParseList("eth,nope")
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

func TestGet(t *testing.T) {
	c, err := Get("polygon")
	require.NoError(t, err)
	assert.Equal(t, "Polygon", c.Name)
	assert.Equal(t, uint64(137), c.NetworkID)

	_, err = Get("matic")
	assert.True(t, errors.Is(err, ErrUnsupportedChain), "alternative names are not canonical ids")
}
