// Package refresh drives the registry lifecycle: it waits for the
// upstream listings to be ready once, then rebuilds every chain's table
// each time the vault or boost listings change.
package refresh

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"token-registry/internal/domain"
	"token-registry/internal/eventbus"
	"token-registry/internal/observability"
	"token-registry/internal/tokens"
)

// State is the lifecycle state of the orchestrator.
type State string

const (
	StateAwaitingStartupSignals State = "awaiting_startup_signals"
	StateRefreshing             State = "refreshing"
	StateIdle                   State = "idle"
)

// Aggregator builds the table of one chain.
type Aggregator interface {
	Aggregate(ctx context.Context, chain domain.ChainID) (*tokens.Table, error)
}

// Publisher swaps in a batch of tables. *registry.Registry satisfies it.
type Publisher interface {
	Publish(tables map[domain.ChainID]*tokens.Table) error
}

// Bus is the signal bus the orchestrator waits on and emits to.
type Bus interface {
	Emit(name string)
	WaitForFirst(ctx context.Context, name string) error
	WaitForAny(ctx context.Context, names ...string) (string, error)
}

// Options for creating Orchestrator.
type Options struct {
	Aggregator Aggregator
	Registry   Publisher
	Bus        Bus
	Chains     []domain.ChainID
	Logger     log.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// CycleResult describes a finished refresh cycle.
type CycleResult struct {
	Seq      uint64                 `json:"seq"`
	Started  time.Time              `json:"started"`
	Finished time.Time              `json:"finished"`
	Tokens   map[domain.ChainID]int `json:"tokens,omitempty"`
	Err      string                 `json:"error,omitempty"`
}

// Orchestrator runs refresh cycles one at a time.
type Orchestrator struct {
	aggregator Aggregator
	registry   Publisher
	bus        Bus
	chains     []domain.ChainID
	logger     log.Logger
	now        func() time.Time

	// cycle is held for the whole of RefreshAll.
	cycle sync.Mutex

	mu    sync.RWMutex
	state State
	last  *CycleResult
	seq   uint64
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	chains := append([]domain.ChainID(nil), opts.Chains...)
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })

	return &Orchestrator{
		aggregator: opts.Aggregator,
		registry:   opts.Registry,
		bus:        opts.Bus,
		chains:     chains,
		logger:     log.With(logger, "component", "refresh"),
		now:        now,
		state:      StateAwaitingStartupSignals,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// LastCycle returns the most recent finished cycle, or nil.
func (o *Orchestrator) LastCycle() *CycleResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return nil
	}
	c := *o.last
	return &c
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run blocks until both listings have signalled readiness once, then
// refreshes and waits for the next vault or boost signal, forever. A
// failed cycle is logged and does not stop the loop. Run returns only
// when ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.setState(StateAwaitingStartupSignals)
	level.Info(o.logger).Log("msg", "waiting for startup signals")

	for _, ev := range []string{eventbus.VaultsUpdated, eventbus.BoostsUpdated} {
		if err := o.bus.WaitForFirst(ctx, ev); err != nil {
			return err
		}
	}

	for {
		if _, err := o.RefreshAll(ctx); err != nil {
			level.Error(o.logger).Log("msg", "refresh cycle failed", "err", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ev, err := o.bus.WaitForAny(ctx, eventbus.VaultsUpdated, eventbus.BoostsUpdated)
		if err != nil {
			return err
		}
		observability.RecordSignal(ev)
		level.Debug(o.logger).Log("msg", "signal received", "event", ev)
	}
}

// RefreshAll aggregates every chain concurrently and publishes the tables
// only if all of them succeed. On success it emits the per-chain ready
// events, then the global tokens event. Overlapping calls run one after
// the other, and the state is idle again once the cycle ends.
func (o *Orchestrator) RefreshAll(ctx context.Context) (*CycleResult, error) {
	o.cycle.Lock()
	defer o.cycle.Unlock()
	defer o.setState(StateIdle)

	o.setState(StateRefreshing)

	o.mu.Lock()
	o.seq++
	result := &CycleResult{Seq: o.seq, Started: o.now()}
	o.mu.Unlock()

	tables, err := o.aggregateAll(ctx)
	if err == nil {
		err = o.registry.Publish(tables)
	}
	result.Finished = o.now()
	took := result.Finished.Sub(result.Started)

	if err != nil {
		result.Err = err.Error()
		o.finish(result)
		observability.RecordRefreshCycle("error", took.Seconds(), result.Finished.Unix())
		return result, err
	}

	result.Tokens = make(map[domain.ChainID]int, len(tables))
	for _, c := range o.chains {
		n := tables[c].Len()
		result.Tokens[c] = n
		observability.UpdateChainTokens(string(c), n)
		o.bus.Emit(eventbus.TokensReady(c))
	}
	o.bus.Emit(eventbus.TokensUpdated)

	o.finish(result)
	observability.RecordRefreshCycle("success", took.Seconds(), result.Finished.Unix())
	level.Info(o.logger).Log("msg", "refresh cycle complete", "seq", result.Seq, "chains", len(tables), "took", took)
	return result, nil
}

func (o *Orchestrator) finish(result *CycleResult) {
	o.mu.Lock()
	o.last = result
	o.mu.Unlock()
}

// aggregateAll waits for every chain even after a failure, so each
// failing chain is logged.
func (o *Orchestrator) aggregateAll(ctx context.Context) (map[domain.ChainID]*tokens.Table, error) {
	var (
		mu     sync.Mutex
		tables = make(map[domain.ChainID]*tokens.Table, len(o.chains))
		g      errgroup.Group
	)
	for _, c := range o.chains {
		g.Go(func() error {
			table, err := o.aggregator.Aggregate(ctx, c)
			if err != nil {
				observability.RecordChainFailure(string(c))
				level.Error(o.logger).Log("chain", c, "err", err)
				return errors.Wrapf(err, "refresh %s", c)
			}
			mu.Lock()
			tables[c] = table
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}
