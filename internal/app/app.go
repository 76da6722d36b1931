// Package app assembles the registry process from its configuration:
// listing stores, sources, aggregator, registry, signal bus, refresh
// orchestrator and the upstream signal feeds.
package app

import (
	"context"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"token-registry/internal/addressbook"
	"token-registry/internal/config"
	"token-registry/internal/eventbus"
	"token-registry/internal/refresh"
	"token-registry/internal/registry"
	"token-registry/internal/relay"
	"token-registry/internal/sources"
	"token-registry/internal/storage"
	"token-registry/internal/storage/memory"
	"token-registry/internal/storage/migrations"
	"token-registry/internal/storage/postgres"
	"token-registry/internal/storage/seed"
	"token-registry/internal/tokens"
)

// App is a wired registry process.
type App struct {
	Bus          *eventbus.Bus
	Registry     *registry.Registry
	Orchestrator *refresh.Orchestrator
	Vaults       storage.VaultStore
	Boosts       storage.BoostStore

	cfg    *config.Config
	pool   *postgres.Pool
	logger log.Logger
}

// New wires an App. Close releases what New acquired.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	a := &App{
		Bus:      eventbus.New(),
		Registry: registry.New(cfg.Chains),
		cfg:      cfg,
		logger:   logger,
	}

	if err := a.createStores(ctx); err != nil {
		return nil, err
	}

	book, err := loadAddressBook(cfg.AddressBookDir)
	if err != nil {
		a.Close()
		return nil, err
	}

	aggregator := tokens.NewAggregator(
		sources.NewVaults(a.Vaults, logger),
		sources.NewBoosts(a.Boosts, a.Vaults, logger),
		sources.NewAddressBook(book, logger),
		logger,
	)

	a.Orchestrator = refresh.New(refresh.Options{
		Aggregator: aggregator,
		Registry:   a.Registry,
		Bus:        a.Bus,
		Chains:     cfg.Chains,
		Logger:     logger,
	})
	return a, nil
}

func (a *App) createStores(ctx context.Context) error {
	if a.cfg.UseMemory {
		level.Info(a.logger).Log("msg", "using in-memory listing stores")
		a.Vaults = memory.NewVaultStore()
		a.Boosts = memory.NewBoostStore()
		return nil
	}

	pool, err := postgres.NewPool(ctx, a.cfg.PostgresDSN)
	if err != nil {
		return errors.Wrap(err, "postgres")
	}
	if a.cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return errors.Wrap(err, "postgres migrations")
		}
	}
	level.Info(a.logger).Log("msg", "connected to postgres")

	a.pool = pool
	a.Vaults = postgres.NewVaultStore(pool)
	a.Boosts = postgres.NewBoostStore(pool)
	return nil
}

func loadAddressBook(dir string) (*addressbook.Book, error) {
	if dir == "" {
		return addressbook.Default()
	}
	return addressbook.Load(os.DirFS(dir), ".")
}

// Seed loads the configured seed file into the listing stores and, since
// the stores now hold fresh listings, emits both listing signals. Without
// a seed file and with ReadyOnStart set, only the signals are emitted.
func (a *App) Seed(ctx context.Context) error {
	if a.cfg.SeedFile != "" {
		doc, err := seed.Load(a.cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := doc.Apply(ctx, a.cfg.Chains, a.Vaults, a.Boosts); err != nil {
			return err
		}
		level.Info(a.logger).Log("msg", "seeded listings", "file", a.cfg.SeedFile,
			"vaults", len(doc.Vaults), "boosts", len(doc.Boosts))
	} else if !a.cfg.ReadyOnStart {
		return nil
	}

	a.Bus.Emit(eventbus.VaultsUpdated)
	a.Bus.Emit(eventbus.BoostsUpdated)
	return nil
}

// Run runs the orchestrator together with the upstream feeds until ctx is
// done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.pool != nil {
		listener := postgres.NewListener(a.pool, a.Bus, map[string]string{
			postgres.ChannelVaultsUpdated: eventbus.VaultsUpdated,
			postgres.ChannelBoostsUpdated: eventbus.BoostsUpdated,
		}, a.logger)
		g.Go(func() error { return listener.Run(ctx) })
	}

	if a.cfg.RelayEndpoint != "" {
		r := relay.NewWSRelay(a.cfg.RelayEndpoint, a.Bus,
			[]string{eventbus.VaultsUpdated, eventbus.BoostsUpdated}, nil, a.logger)
		g.Go(func() error { return r.Run(ctx) })
	}

	g.Go(func() error { return a.Orchestrator.Run(ctx) })

	return g.Wait()
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
