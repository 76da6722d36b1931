// Package chain lists the networks the registry supports.
package chain

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"token-registry/internal/domain"
)

// ErrUnsupportedChain is returned for chain ids the registry does not track.
var ErrUnsupportedChain = errors.New("unsupported chain")

// Chain describes one supported network.
type Chain struct {
	ID               domain.ChainID
	Name             string
	NetworkID        uint64
	AlternativeNames []string
}

// Insert more chains here to support more networks.
var supportedChains = []Chain{
	{ID: "eth", Name: "Ethereum", NetworkID: 1, AlternativeNames: []string{"ethereum", "mainnet"}},
	{ID: "bsc", Name: "BNB Chain", NetworkID: 56},
	{ID: "polygon", Name: "Polygon", NetworkID: 137, AlternativeNames: []string{"matic"}},
	{ID: "arbitrum", Name: "Arbitrum One", NetworkID: 42161},
	{ID: "optimism", Name: "OP Mainnet", NetworkID: 10},
	{ID: "base", Name: "Base", NetworkID: 8453},
	{ID: "avax", Name: "Avalanche C-Chain", NetworkID: 43114, AlternativeNames: []string{"avalanche"}},
	{ID: "fantom", Name: "Fantom", NetworkID: 250},
	{ID: "linea", Name: "Linea", NetworkID: 59144},
	{ID: "scroll", Name: "Scroll", NetworkID: 534352},
}

var byName = indexChains(supportedChains)

func indexChains(chains []Chain) map[string]Chain {
	res := map[string]Chain{}
	for _, c := range chains {
		for _, name := range append([]string{string(c.ID)}, c.AlternativeNames...) {
			if _, found := res[name]; found {
				panic(errors.Errorf("chain with name or alternative name of '%s' already exists", name))
			}
			res[name] = c
		}
	}
	return res
}

// Parse resolves a chain id or one of its alternative names.
func Parse(s string) (domain.ChainID, error) {
	c, found := byName[strings.ToLower(strings.TrimSpace(s))]
	if !found {
		return "", errors.Wrapf(ErrUnsupportedChain, "chain '%s'", s)
	}
	return c.ID, nil
}

// IsSupported reports whether id is the canonical id of a supported chain.
func IsSupported(id domain.ChainID) bool {
	c, found := byName[string(id)]
	return found && c.ID == id
}

// Get returns the chain for a canonical id.
func Get(id domain.ChainID) (Chain, error) {
	if !IsSupported(id) {
		return Chain{}, errors.Wrapf(ErrUnsupportedChain, "chain '%s'", id)
	}
	return byName[string(id)], nil
}

// All returns the canonical ids of all supported chains, sorted.
func All() []domain.ChainID {
	res := make([]domain.ChainID, 0, len(supportedChains))
	for _, c := range supportedChains {
		res = append(res, c.ID)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// ParseList parses a comma separated list of chain names. An empty list
// means all supported chains.
func ParseList(s string) ([]domain.ChainID, error) {
	if strings.TrimSpace(s) == "" {
		return All(), nil
	}
	seen := map[domain.ChainID]bool{}
	var res []domain.ChainID
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		res = append(res, id)
	}
	return res, nil
}
