package tokens

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"token-registry/internal/chain"
	"token-registry/internal/domain"
	"token-registry/internal/sources"
)

// Aggregator merges the vault, boost and curated sources of a chain into
// a Table. Sources rank in that order.
type Aggregator struct {
	vaults  sources.Source
	boosts  sources.Source
	curated sources.Source
	logger  log.Logger
}

// NewAggregator creates an Aggregator over the three sources.
func NewAggregator(vaults, boosts, curated sources.Source, logger log.Logger) *Aggregator {
	return &Aggregator{
		vaults:  vaults,
		boosts:  boosts,
		curated: curated,
		logger:  log.With(logger, "component", "aggregator"),
	}
}

// Aggregate builds the table of chainID. Unsupported chains are rejected
// before any source is queried. A source error fails the whole chain.
func (a *Aggregator) Aggregate(ctx context.Context, chainID domain.ChainID) (*Table, error) {
	if !chain.IsSupported(chainID) {
		return nil, errors.Wrapf(chain.ErrUnsupportedChain, "%q", chainID)
	}

	ordered := []sources.Source{a.vaults, a.boosts, a.curated}
	results := make([][]domain.Token, len(ordered))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range ordered {
		g.Go(func() error {
			toks, err := src.Tokens(gctx, chainID)
			if err != nil {
				return errors.Wrapf(err, "%s source", src.Name())
			}
			results[i] = toks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "aggregate %s", chainID)
	}

	b := NewBuilder(chainID)
	for i, toks := range results {
		results[i] = a.valid(chainID, ordered[i].Name(), toks)
		level.Debug(a.logger).Log("chain", chainID, "source", ordered[i].Name(), "candidates", len(results[i]))
		b.Add(results[i]...)
	}
	b.ApplyCurated(results[len(results)-1]...)

	return b.Build()
}

// valid drops records that fail Token.Validate.
func (a *Aggregator) valid(chainID domain.ChainID, source string, toks []domain.Token) []domain.Token {
	out := toks[:0:0]
	for _, t := range toks {
		if err := t.Validate(); err != nil {
			level.Warn(a.logger).Log("chain", chainID, "source", source, "msg", "skipping invalid token", "err", err)
			continue
		}
		out = append(out, t)
	}
	return out
}
