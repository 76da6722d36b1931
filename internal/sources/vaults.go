package sources

import (
	"context"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"token-registry/internal/address"
	"token-registry/internal/domain"
)

// Vaults derives deposit and earned tokens from vault listings.
type Vaults struct {
	provider VaultProvider
	logger   log.Logger
}

// NewVaults creates the vault-derived source.
func NewVaults(provider VaultProvider, logger log.Logger) *Vaults {
	return &Vaults{
		provider: provider,
		logger:   log.With(logger, "source", NameVaults),
	}
}

// Name implements Source.
func (s *Vaults) Name() string { return NameVaults }

// Tokens implements Source.
func (s *Vaults) Tokens(ctx context.Context, chain domain.ChainID) ([]domain.Token, error) {
	vaults, err := s.provider.GetByChain(ctx, chain)
	if err != nil {
		return nil, errors.Wrapf(err, "list vaults of %s", chain)
	}

	var out []domain.Token
	for _, v := range vaults {
		if t, ok := s.depositToken(chain, v); ok {
			out = append(out, t)
		}
		if t, ok := s.earnedToken(chain, v); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// depositToken skips native deposits and concentrated-liquidity positions,
// which are not tokens.
func (s *Vaults) depositToken(chain domain.ChainID, v *domain.Vault) (domain.Token, bool) {
	if isNativeAddress(v.TokenAddress) || v.Kind == domain.VaultKindCowcentrated || v.Token == "" {
		return domain.Token{}, false
	}
	addr, err := address.Checksum(v.TokenAddress)
	if err != nil {
		level.Warn(s.logger).Log("chain", chain, "vault", v.ID, "msg", "skipping deposit token", "err", err)
		return domain.Token{}, false
	}

	oracle := v.Oracle
	if oracle == "" {
		oracle = domain.PricingTokens
	}
	oracleID := v.OracleID
	if oracleID == "" {
		oracleID = v.Token
	}

	return domain.Token{
		Kind:     domain.KindERC20,
		ID:       v.Token,
		Symbol:   v.Token,
		Name:     v.Token,
		ChainID:  chain,
		Oracle:   oracle,
		OracleID: oracleID,
		Address:  addr,
		Decimals: v.TokenDecimals,
		Bridge:   v.TokenBridge,
	}, true
}

// earnedToken skips native rewards and the vault's own receipt token.
func (s *Vaults) earnedToken(chain domain.ChainID, v *domain.Vault) (domain.Token, bool) {
	if isNativeAddress(v.EarnedTokenAddress) || v.EarnedToken == "" {
		return domain.Token{}, false
	}
	if strings.EqualFold(strings.TrimSpace(v.EarnedTokenAddress), strings.TrimSpace(v.EarnContractAddress)) {
		return domain.Token{}, false
	}
	addr, err := address.Checksum(v.EarnedTokenAddress)
	if err != nil {
		level.Warn(s.logger).Log("chain", chain, "vault", v.ID, "msg", "skipping earned token", "err", err)
		return domain.Token{}, false
	}

	decimals := v.EarnedTokenDecimals
	if decimals == 0 {
		decimals = defaultDecimals
	}

	return domain.Token{
		Kind:     domain.KindERC20,
		ID:       v.EarnedToken,
		Symbol:   v.EarnedToken,
		Name:     v.EarnedToken,
		ChainID:  chain,
		Oracle:   domain.PricingTokens,
		OracleID: v.EarnedToken,
		Address:  addr,
		Decimals: decimals,
	}, true
}

var _ Source = (*Vaults)(nil)
