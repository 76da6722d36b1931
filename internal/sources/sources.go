// Package sources derives candidate token records for one chain from
// vault listings, boost rewards and the curated address book.
//
// Adapters know nothing of each other. Precedence between them is the
// aggregator's business.
package sources

import (
	"context"
	"strings"

	"token-registry/internal/domain"
)

// Source produces the candidate tokens of a chain.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Tokens returns the candidates for chain. An empty result is valid.
	Tokens(ctx context.Context, chain domain.ChainID) ([]domain.Token, error)
}

// VaultProvider lists vaults. storage.VaultStore satisfies it.
type VaultProvider interface {
	GetByChain(ctx context.Context, chain domain.ChainID) ([]*domain.Vault, error)
}

// BoostProvider lists active boosts. storage.BoostStore satisfies it.
type BoostProvider interface {
	GetActiveByChain(ctx context.Context, chain domain.ChainID) ([]*domain.Boost, error)
}

// Source names.
const (
	NameVaults      = "vaults"
	NameBoosts      = "boosts"
	NameAddressBook = "addressbook"
)

// defaultDecimals is used for earned tokens whose decimals are unknown.
const defaultDecimals = 18

// isNativeAddress reports whether a listing address denotes the native asset.
func isNativeAddress(a string) bool {
	a = strings.TrimSpace(a)
	return a == "" || strings.EqualFold(a, domain.NativeAddress)
}
