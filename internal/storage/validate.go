package storage

import (
	"github.com/pkg/errors"

	"token-registry/internal/domain"
)

// ValidateVaults checks a replacement batch for one chain.
func ValidateVaults(chain domain.ChainID, vaults []*domain.Vault) error {
	seen := make(map[string]bool, len(vaults))
	for _, v := range vaults {
		if v == nil || v.ID == "" {
			return errors.Wrap(ErrInvalidInput, "vault without id")
		}
		if v.ChainID != chain {
			return errors.Wrapf(ErrInvalidInput, "vault %s belongs to chain %s, not %s", v.ID, v.ChainID, chain)
		}
		if seen[v.ID] {
			return errors.Wrapf(ErrDuplicateKey, "vault %s", v.ID)
		}
		seen[v.ID] = true
	}
	return nil
}

// ValidateBoosts checks a replacement batch for one chain.
func ValidateBoosts(chain domain.ChainID, boosts []*domain.Boost) error {
	seen := make(map[string]bool, len(boosts))
	for _, b := range boosts {
		if b == nil || b.ID == "" {
			return errors.Wrap(ErrInvalidInput, "boost without id")
		}
		if b.ChainID != chain {
			return errors.Wrapf(ErrInvalidInput, "boost %s belongs to chain %s, not %s", b.ID, b.ChainID, chain)
		}
		if seen[b.ID] {
			return errors.Wrapf(ErrDuplicateKey, "boost %s", b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}
