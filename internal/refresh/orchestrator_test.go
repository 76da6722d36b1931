package refresh

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-registry/internal/addressbook"
	"token-registry/internal/domain"
	"token-registry/internal/eventbus"
	"token-registry/internal/registry"
	"token-registry/internal/sources"
	"token-registry/internal/storage/memory"
	"token-registry/internal/tokens"
)

const wethAddr = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

// fakeAggregator builds a minimal table per chain whose native symbol
// carries the current version.
type fakeAggregator struct {
	mu      sync.Mutex
	version string
	fail    map[domain.ChainID]error
	calls   int
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{version: "v1", fail: map[domain.ChainID]error{}}
}

func (f *fakeAggregator) set(version string, fail map[domain.ChainID]error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version = version
	f.fail = fail
}

func (f *fakeAggregator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAggregator) Aggregate(_ context.Context, chain domain.ChainID) (*tokens.Table, error) {
	f.mu.Lock()
	f.calls++
	version, err := f.version, f.fail[chain]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	b := tokens.NewBuilder(chain)
	b.Add(
		domain.Token{Kind: domain.KindNative, ID: domain.NativeID, Symbol: version, ChainID: chain, Address: domain.NativeAddress, Decimals: 18},
		domain.Token{Kind: domain.KindERC20, ID: domain.WrappedNativeID, Symbol: "W" + version, ChainID: chain, Address: wethAddr, Decimals: 18},
	)
	return b.Build()
}

// recordingBus records emissions in order.
type recordingBus struct {
	*eventbus.Bus
	mu      sync.Mutex
	emitted []string
}

func (r *recordingBus) Emit(name string) {
	r.mu.Lock()
	r.emitted = append(r.emitted, name)
	r.mu.Unlock()
	r.Bus.Emit(name)
}

func (r *recordingBus) Emitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.emitted...)
}

var chains = []domain.ChainID{"eth", "bsc"}

func setup(agg Aggregator) (*Orchestrator, *registry.Registry, *recordingBus) {
	reg := registry.New(chains)
	bus := &recordingBus{Bus: eventbus.New()}
	o := New(Options{
		Aggregator: agg,
		Registry:   reg,
		Bus:        bus,
		Chains:     chains,
		Logger:     log.NewNopLogger(),
	})
	return o, reg, bus
}

func nativeSymbol(t *testing.T, reg *registry.Registry, chain domain.ChainID) string {
	t.Helper()
	tok, err := reg.Native(chain)
	require.NoError(t, err)
	return tok.Symbol
}

func TestRefreshAll_PublishesAndEmitsInOrder(t *testing.T) {
	o, reg, bus := setup(newFakeAggregator())

	result, err := o.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Seq)
	assert.Equal(t, map[domain.ChainID]int{"eth": 2, "bsc": 2}, result.Tokens)

	assert.Equal(t, "v1", nativeSymbol(t, reg, "eth"))
	assert.Equal(t, "v1", nativeSymbol(t, reg, "bsc"))
	assert.Equal(t, StateIdle, o.State())

	assert.Equal(t, []string{
		eventbus.TokensReady("bsc"),
		eventbus.TokensReady("eth"),
		eventbus.TokensUpdated,
	}, bus.Emitted())
}

func TestRefreshAll_CycleIsAtomic(t *testing.T) {
	agg := newFakeAggregator()
	o, reg, bus := setup(agg)

	_, err := o.RefreshAll(context.Background())
	require.NoError(t, err)
	emittedBefore := len(bus.Emitted())

	errBroken := errors.New("bsc curated dataset missing")
	agg.set("v2", map[domain.ChainID]error{"bsc": errBroken})

	result, err := o.RefreshAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
	assert.NotEmpty(t, result.Err)

	// eth succeeded this cycle but must not be published
	assert.Equal(t, "v1", nativeSymbol(t, reg, "eth"))
	assert.Equal(t, "v1", nativeSymbol(t, reg, "bsc"))
	assert.Len(t, bus.Emitted(), emittedBefore, "failed cycle emits nothing")
	assert.Equal(t, result.Seq, o.LastCycle().Seq)
}

func TestRefreshAll_FirstCycleFailureLeavesRegistryEmpty(t *testing.T) {
	agg := newFakeAggregator()
	agg.set("v1", map[domain.ChainID]error{"eth": errors.New("db down")})
	o, reg, _ := setup(agg)

	_, err := o.RefreshAll(context.Background())
	require.Error(t, err)

	_, err = reg.Native("bsc")
	assert.ErrorIs(t, err, registry.ErrNotConfigured)
	assert.Equal(t, StateIdle, o.State())
}

func TestRun_StartupBarrierAndRearm(t *testing.T) {
	agg := newFakeAggregator()
	o, reg, bus := setup(agg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	// one of the two startup signals is not enough
	bus.Emit(eventbus.VaultsUpdated)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, agg.Calls())
	assert.Equal(t, StateAwaitingStartupSignals, o.State())

	bus.Emit(eventbus.BoostsUpdated)
	require.Eventually(t, func() bool {
		return o.State() == StateIdle && bus.Count(eventbus.TokensUpdated) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "v1", nativeSymbol(t, reg, "eth"))

	// Either signal re-arms the loop. The orchestrator subscribes only
	// once it is idle, so keep signalling until the cycle is observed.
	agg.set("v2", nil)
	require.Eventually(t, func() bool {
		bus.Emit(eventbus.BoostsUpdated)
		tok, _ := reg.Native("eth")
		return tok.Symbol == "v2"
	}, 2*time.Second, 20*time.Millisecond)

	// a failed cycle does not stop the loop
	agg.set("v3", map[domain.ChainID]error{"eth": errors.New("boom")})
	require.Eventually(t, func() bool {
		bus.Emit(eventbus.VaultsUpdated)
		c := o.LastCycle()
		return c != nil && c.Err != ""
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "v2", nativeSymbol(t, reg, "eth"))

	agg.set("v4", nil)
	require.Eventually(t, func() bool {
		bus.Emit(eventbus.VaultsUpdated)
		tok, _ := reg.Native("eth")
		return tok.Symbol == "v4"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_StartupSignalsAlreadyFired(t *testing.T) {
	o, _, bus := setup(newFakeAggregator())
	bus.Emit(eventbus.BoostsUpdated)
	bus.Emit(eventbus.VaultsUpdated)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = o.Run(ctx) }()

	require.Eventually(t, func() bool {
		return bus.Count(eventbus.TokensUpdated) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

// blockingAggregator holds every Aggregate call until released.
type blockingAggregator struct {
	*fakeAggregator
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAggregator) Aggregate(ctx context.Context, chain domain.ChainID) (*tokens.Table, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeAggregator.Aggregate(ctx, chain)
}

func TestRun_SignalsDuringCycleAreNotQueued(t *testing.T) {
	agg := &blockingAggregator{
		fakeAggregator: newFakeAggregator(),
		entered:        make(chan struct{}, 16),
		release:        make(chan struct{}),
	}
	o, _, bus := setup(agg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = o.Run(ctx) }()

	bus.Emit(eventbus.VaultsUpdated)
	bus.Emit(eventbus.BoostsUpdated)
	<-agg.entered

	// arrives mid-cycle
	bus.Emit(eventbus.VaultsUpdated)
	bus.Emit(eventbus.BoostsUpdated)
	close(agg.release)

	require.Eventually(t, func() bool {
		return bus.Count(eventbus.TokensUpdated) == 1 && o.State() == StateIdle
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(1), bus.Count(eventbus.TokensUpdated))
	assert.Equal(t, len(chains), agg.Calls())
}

func TestRefreshAll_OverlappingCallsRunOneAtATime(t *testing.T) {
	agg := &blockingAggregator{
		fakeAggregator: newFakeAggregator(),
		entered:        make(chan struct{}, 16),
		release:        make(chan struct{}),
	}
	o, reg, _ := setup(agg)

	first := make(chan *CycleResult, 1)
	go func() {
		r, _ := o.RefreshAll(context.Background())
		first <- r
	}()
	for range chains {
		<-agg.entered
	}
	assert.Equal(t, StateRefreshing, o.State())

	second := make(chan *CycleResult, 1)
	go func() {
		r, _ := o.RefreshAll(context.Background())
		second <- r
	}()

	// the second call must not aggregate while the first holds the cycle
	select {
	case <-agg.entered:
		t.Fatal("second cycle started while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	agg.set("v2", nil)
	close(agg.release)

	r1 := <-first
	r2 := <-second
	assert.Equal(t, uint64(1), r1.Seq)
	assert.Equal(t, uint64(2), r2.Seq)
	assert.False(t, r2.Started.Before(r1.Finished))
	assert.Equal(t, "v2", nativeSymbol(t, reg, "eth"))
	assert.Equal(t, uint64(2), o.LastCycle().Seq)
	assert.Equal(t, StateIdle, o.State())
}

func TestRefreshAll_Idempotent(t *testing.T) {
	logger := log.NewNopLogger()
	book, err := addressbook.Default()
	require.NoError(t, err)

	vaults := memory.NewVaultStore()
	boosts := memory.NewBoostStore()
	require.NoError(t, vaults.ReplaceChain(context.Background(), "eth", []*domain.Vault{{
		ID: "usdc", ChainID: "eth", Token: "USDC", TokenAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", TokenDecimals: 6,
	}}))

	agg := tokens.NewAggregator(
		sources.NewVaults(vaults, logger),
		sources.NewBoosts(boosts, vaults, logger),
		sources.NewAddressBook(book, logger),
		logger,
	)
	o, reg, _ := setup(agg)

	_, err = o.RefreshAll(context.Background())
	require.NoError(t, err)
	first, err := json.Marshal(reg.Snapshot())
	require.NoError(t, err)

	_, err = o.RefreshAll(context.Background())
	require.NoError(t, err)
	second, err := json.Marshal(reg.Snapshot())
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, string(first), string(second))
}
