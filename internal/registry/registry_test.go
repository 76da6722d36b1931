package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-registry/internal/domain"
	"token-registry/internal/tokens"
)

const (
	wethAddr = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdcAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func buildTable(t *testing.T, chain domain.ChainID, nativeSymbol string, extra ...domain.Token) *tokens.Table {
	t.Helper()
	b := tokens.NewBuilder(chain)
	b.Add(
		domain.Token{Kind: domain.KindNative, ID: domain.NativeID, Symbol: nativeSymbol, ChainID: chain, Address: domain.NativeAddress, Decimals: 18},
		domain.Token{Kind: domain.KindERC20, ID: domain.WrappedNativeID, Symbol: "W" + nativeSymbol, ChainID: chain, Address: wethAddr, Decimals: 18},
	)
	b.Add(extra...)
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func TestRegistry_Unpublished(t *testing.T) {
	r := New([]domain.ChainID{"eth", "bsc"})

	_, err := r.Native("eth")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = r.WrappedNative("eth")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = r.Native("solana")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, ok := r.TokenByID("eth", domain.NativeID)
	assert.False(t, ok)
	_, ok = r.TokenByAddress("eth", wethAddr)
	assert.False(t, ok)
	assert.Nil(t, r.TokensByAddress("eth"))
	assert.Nil(t, r.TokensByID("eth"))
	assert.Empty(t, r.Snapshot())
	assert.False(t, r.Published("eth"))
	assert.Equal(t, []domain.ChainID{"bsc", "eth"}, r.Chains())
}

func TestRegistry_Queries(t *testing.T) {
	r := New([]domain.ChainID{"eth"})
	usdc := domain.Token{Kind: domain.KindERC20, ID: "USDC", Symbol: "USDC", ChainID: "eth", Address: usdcAddr, Decimals: 6}
	require.NoError(t, r.Publish(map[domain.ChainID]*tokens.Table{"eth": buildTable(t, "eth", "ETH", usdc)}))

	native, err := r.Native("eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", native.Symbol)
	assert.Equal(t, domain.NativeAddress, native.Address)

	wrapped, err := r.WrappedNative("eth")
	require.NoError(t, err)
	assert.Equal(t, "WETH", wrapped.Symbol)
	assert.Equal(t, wethAddr, wrapped.Address)

	got, ok := r.TokenByAddress("eth", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.True(t, ok)
	assert.Equal(t, usdc, got)

	got, ok = r.TokenByID("eth", "USDC")
	require.True(t, ok)
	assert.Equal(t, usdcAddr, got.Address)

	byAddr := r.TokensByAddress("eth")
	assert.Len(t, byAddr, 3)
	assert.Contains(t, byAddr, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")

	byID := r.TokensByID("eth")
	assert.Len(t, byID, 3)
	assert.Equal(t, "WETH", byID[domain.WrappedNativeID].Symbol)

	snap := r.Snapshot()
	require.Contains(t, snap, domain.ChainID("eth"))
	assert.Equal(t, 3, snap["eth"].Len())
}

func TestRegistry_NativeWrappedMapping(t *testing.T) {
	r := New([]domain.ChainID{"eth"})
	require.NoError(t, r.Publish(map[domain.ChainID]*tokens.Table{"eth": buildTable(t, "eth", "ETH")}))

	native, _ := r.Native("eth")
	wrapped, _ := r.WrappedNative("eth")
	usdc := domain.Token{Kind: domain.KindERC20, ID: "USDC", ChainID: "eth", Address: usdcAddr}

	got, err := r.WrappedIfNative(native)
	require.NoError(t, err)
	assert.Equal(t, wrapped, got)

	got, err = r.WrappedIfNative(usdc)
	require.NoError(t, err)
	assert.Equal(t, usdc, got)

	// address equality ignores case and record details
	lower := wrapped
	lower.Address = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	lower.Symbol = "weth"
	got, err = r.NativeIfWrapped(lower)
	require.NoError(t, err)
	assert.Equal(t, native, got)

	got, err = r.NativeIfWrapped(usdc)
	require.NoError(t, err)
	assert.Equal(t, usdc, got)

	got, err = r.NativeIfWrapped(native)
	require.NoError(t, err)
	assert.Equal(t, native, got)

	_, err = r.WrappedIfNative(domain.Token{Kind: domain.KindNative, ChainID: "bsc"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = r.NativeIfWrapped(domain.Token{Kind: "bogus"})
	assert.Error(t, err)
}

func TestRegistry_PublishReplacesWholeTable(t *testing.T) {
	r := New([]domain.ChainID{"eth"})
	usdc := domain.Token{Kind: domain.KindERC20, ID: "USDC", ChainID: "eth", Address: usdcAddr}
	require.NoError(t, r.Publish(map[domain.ChainID]*tokens.Table{"eth": buildTable(t, "eth", "ETH", usdc)}))
	require.NoError(t, r.Publish(map[domain.ChainID]*tokens.Table{"eth": buildTable(t, "eth", "ETH")}))

	_, ok := r.TokenByID("eth", "USDC")
	assert.False(t, ok, "records are replaced, never merged")
}

func TestRegistry_PublishRejectsWholeBatch(t *testing.T) {
	r := New([]domain.ChainID{"eth", "bsc"})
	old := buildTable(t, "eth", "ETH")
	require.NoError(t, r.Publish(map[domain.ChainID]*tokens.Table{"eth": old}))

	err := r.Publish(map[domain.ChainID]*tokens.Table{
		"eth":     buildTable(t, "eth", "XETH"),
		"polygon": buildTable(t, "polygon", "POL"),
	})
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = r.Publish(map[domain.ChainID]*tokens.Table{
		"eth": buildTable(t, "eth", "XETH"),
		"bsc": buildTable(t, "eth", "BNB"),
	})
	assert.Error(t, err)

	native, err := r.Native("eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", native.Symbol)
	assert.False(t, r.Published("bsc"))
}

func TestRegistry_ConcurrentReadsDuringPublish(t *testing.T) {
	r := New([]domain.ChainID{"eth"})
	require.NoError(t, r.Publish(map[domain.ChainID]*tokens.Table{"eth": buildTable(t, "eth", "ETH")}))

	tables := []*tokens.Table{buildTable(t, "eth", "ETH"), buildTable(t, "eth", "ETH2")}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				native, err := r.Native("eth")
				if err != nil || (native.Symbol != "ETH" && native.Symbol != "ETH2") {
					t.Errorf("unexpected native %v, %v", native, err)
					return
				}
				_ = r.TokensByAddress("eth")
			}
		}()
	}

	for i := 0; i < 200; i++ {
		require.NoError(t, r.Publish(map[domain.ChainID]*tokens.Table{"eth": tables[i%2]}))
	}
	close(stop)
	wg.Wait()
}
