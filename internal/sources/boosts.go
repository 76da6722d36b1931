package sources

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"token-registry/internal/address"
	"token-registry/internal/domain"
)

// Boosts derives reward tokens from active boosts. Rewards paid in a
// vault's receipt token on the same chain are excluded.
type Boosts struct {
	boosts BoostProvider
	vaults VaultProvider
	logger log.Logger
}

// NewBoosts creates the boost-derived source.
func NewBoosts(boosts BoostProvider, vaults VaultProvider, logger log.Logger) *Boosts {
	return &Boosts{
		boosts: boosts,
		vaults: vaults,
		logger: log.With(logger, "source", NameBoosts),
	}
}

// Name implements Source.
func (s *Boosts) Name() string { return NameBoosts }

// Tokens implements Source.
func (s *Boosts) Tokens(ctx context.Context, chain domain.ChainID) ([]domain.Token, error) {
	receipts, err := s.vaultReceipts(ctx, chain)
	if err != nil {
		return nil, err
	}

	boosts, err := s.boosts.GetActiveByChain(ctx, chain)
	if err != nil {
		return nil, errors.Wrapf(err, "list boosts of %s", chain)
	}

	var out []domain.Token
	for _, b := range boosts {
		for _, r := range b.Rewards {
			if r.Type != domain.RewardTypeToken || isNativeAddress(r.Address) || r.Symbol == "" {
				continue
			}
			if receipts[address.Key(r.Address)] {
				continue
			}
			addr, err := address.Checksum(r.Address)
			if err != nil {
				level.Warn(s.logger).Log("chain", chain, "boost", b.ID, "msg", "skipping reward", "err", err)
				continue
			}

			tokenChain := chain
			if r.ChainID != "" {
				tokenChain = r.ChainID
			}
			oracle := r.Oracle
			if oracle == "" {
				oracle = domain.PricingTokens
			}
			oracleID := r.OracleID
			if oracleID == "" {
				oracleID = r.Symbol
			}

			out = append(out, domain.Token{
				Kind:     domain.KindERC20,
				ID:       r.Symbol,
				Symbol:   r.Symbol,
				Name:     r.Symbol,
				ChainID:  tokenChain,
				Oracle:   oracle,
				OracleID: oracleID,
				Address:  addr,
				Decimals: r.Decimals,
			})
		}
	}
	return out, nil
}

// vaultReceipts returns the lower-cased receipt addresses of the chain's vaults.
func (s *Boosts) vaultReceipts(ctx context.Context, chain domain.ChainID) (map[string]bool, error) {
	vaults, err := s.vaults.GetByChain(ctx, chain)
	if err != nil {
		return nil, errors.Wrapf(err, "list vaults of %s", chain)
	}
	set := make(map[string]bool, len(vaults))
	for _, v := range vaults {
		if v.EarnContractAddress != "" {
			set[address.Key(v.EarnContractAddress)] = true
		}
	}
	return set, nil
}

var _ Source = (*Boosts)(nil)
