// Package seed loads vault and boost listings from a JSON document into
// the listing stores.
package seed

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"token-registry/internal/domain"
	"token-registry/internal/storage"
)

// Document is the on-disk seed format.
type Document struct {
	Vaults []*domain.Vault `json:"vaults"`
	Boosts []*domain.Boost `json:"boosts"`
}

// Read decodes a seed document. Unknown fields are rejected.
func Read(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	return &doc, nil
}

// Load reads the seed document at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed")
	}
	defer f.Close()

	doc, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "seed %s", path)
	}
	return doc, nil
}

// Apply replaces the listings of every chain in chains with the
// document's entries for that chain. Chains with no entries are cleared.
func (d *Document) Apply(ctx context.Context, chains []domain.ChainID, vaults storage.VaultStore, boosts storage.BoostStore) error {
	vaultsByChain := make(map[domain.ChainID][]*domain.Vault)
	for _, v := range d.Vaults {
		if v == nil {
			return errors.Wrap(storage.ErrInvalidInput, "nil vault in seed")
		}
		vaultsByChain[v.ChainID] = append(vaultsByChain[v.ChainID], v)
	}
	boostsByChain := make(map[domain.ChainID][]*domain.Boost)
	for _, b := range d.Boosts {
		if b == nil {
			return errors.Wrap(storage.ErrInvalidInput, "nil boost in seed")
		}
		boostsByChain[b.ChainID] = append(boostsByChain[b.ChainID], b)
	}

	sorted := append([]domain.ChainID(nil), chains...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, chain := range sorted {
		if err := vaults.ReplaceChain(ctx, chain, vaultsByChain[chain]); err != nil {
			return errors.Wrapf(err, "seed vaults of %s", chain)
		}
		if err := boosts.ReplaceChain(ctx, chain, boostsByChain[chain]); err != nil {
			return errors.Wrapf(err, "seed boosts of %s", chain)
		}
	}
	return nil
}
