package sources

import (
	"context"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"token-registry/internal/address"
	"token-registry/internal/addressbook"
	"token-registry/internal/domain"
)

// AddressBook emits the curated tokens of a chain. A chain without a
// dataset, or whose dataset has no WNATIVE entry, yields nothing.
type AddressBook struct {
	book   *addressbook.Book
	logger log.Logger
}

// NewAddressBook creates the curated source.
func NewAddressBook(book *addressbook.Book, logger log.Logger) *AddressBook {
	return &AddressBook{
		book:   book,
		logger: log.With(logger, "source", NameAddressBook),
	}
}

// Name implements Source.
func (s *AddressBook) Name() string { return NameAddressBook }

// Tokens implements Source. It never fails.
func (s *AddressBook) Tokens(_ context.Context, chain domain.ChainID) ([]domain.Token, error) {
	cb, ok := s.book.Chain(chain)
	if !ok {
		level.Warn(s.logger).Log("chain", chain, "msg", "no address book for chain")
		return nil, nil
	}
	if _, ok := cb.WrappedNative(); !ok {
		level.Warn(s.logger).Log("chain", chain, "msg", "address book has no WNATIVE entry")
		return nil, nil
	}

	var out []domain.Token
	for _, key := range cb.Keys() {
		def := cb.Tokens[key]

		if strings.EqualFold(key, cb.Native.Symbol) {
			out = append(out, nativeToken(chain, key, cb.Native, def.Decimals))
			continue
		}

		if key == domain.WrappedNativeID {
			decimals := cb.Native.Decimals
			if decimals == 0 {
				decimals = def.Decimals
			}
			out = append(out, nativeToken(chain, domain.NativeID, cb.Native, decimals))
		}

		addr, err := address.Checksum(def.Address)
		if err != nil {
			level.Warn(s.logger).Log("chain", chain, "key", key, "msg", "skipping curated token", "err", err)
			continue
		}
		oracle := def.Oracle
		if oracle == "" {
			oracle = domain.PricingTokens
		}
		out = append(out, domain.Token{
			Kind:     domain.KindERC20,
			ID:       key,
			Symbol:   def.Symbol,
			Name:     def.Name,
			ChainID:  chain,
			Oracle:   oracle,
			OracleID: def.OracleID,
			Address:  addr,
			Decimals: def.Decimals,
			Bridge:   def.Bridge,
			Staked:   def.Staked,
		})
	}
	return out, nil
}

func nativeToken(chain domain.ChainID, id string, native addressbook.NativeDef, decimals int) domain.Token {
	return domain.Token{
		Kind:     domain.KindNative,
		ID:       id,
		Symbol:   native.Symbol,
		Name:     native.Symbol,
		ChainID:  chain,
		Oracle:   domain.PricingTokens,
		OracleID: native.OracleID,
		Address:  domain.NativeAddress,
		Decimals: decimals,
	}
}

var _ Source = (*AddressBook)(nil)
