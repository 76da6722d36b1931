package storage

import (
	"context"

	"token-registry/internal/domain"
)

// VaultStore provides access to vault listings.
type VaultStore interface {
	// ReplaceChain atomically replaces all vaults of a chain.
	// Returns ErrDuplicateKey if the batch repeats a vault id.
	ReplaceChain(ctx context.Context, chain domain.ChainID, vaults []*domain.Vault) error

	// GetByID retrieves a vault by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Vault, error)

	// GetByChain retrieves all vaults of a chain, ordered by id ASC.
	GetByChain(ctx context.Context, chain domain.ChainID) ([]*domain.Vault, error)

	// GetAll retrieves the vaults of every chain, ordered by (chain, id) ASC.
	GetAll(ctx context.Context) ([]*domain.Vault, error)
}

// BoostStore provides access to boost listings.
type BoostStore interface {
	// ReplaceChain atomically replaces all boosts of a chain.
	// Returns ErrDuplicateKey if the batch repeats a boost id.
	ReplaceChain(ctx context.Context, chain domain.ChainID, boosts []*domain.Boost) error

	// GetByID retrieves a boost by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Boost, error)

	// GetActiveByChain retrieves the active boosts of a chain, ordered by id ASC.
	GetActiveByChain(ctx context.Context, chain domain.ChainID) ([]*domain.Boost, error)
}
