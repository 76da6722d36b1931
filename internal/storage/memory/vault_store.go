package memory

import (
	"context"
	"sort"
	"sync"

	"token-registry/internal/domain"
	"token-registry/internal/storage"
)

// VaultStore is an in-memory implementation of storage.VaultStore.
type VaultStore struct {
	mu      sync.RWMutex
	byChain map[domain.ChainID][]*domain.Vault // sorted by id
	byID    map[string]*domain.Vault
}

// NewVaultStore creates a new in-memory vault store.
func NewVaultStore() *VaultStore {
	return &VaultStore{
		byChain: make(map[domain.ChainID][]*domain.Vault),
		byID:    make(map[string]*domain.Vault),
	}
}

// ReplaceChain atomically replaces all vaults of a chain.
func (s *VaultStore) ReplaceChain(_ context.Context, chain domain.ChainID, vaults []*domain.Vault) error {
	if err := storage.ValidateVaults(chain, vaults); err != nil {
		return err
	}

	batch := make([]*domain.Vault, 0, len(vaults))
	for _, v := range vaults {
		vaultCopy := *v
		batch = append(batch, &vaultCopy)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()

	// A vault id moving between chains belongs to its latest chain only.
	for _, v := range batch {
		if prev, ok := s.byID[v.ID]; ok && prev.ChainID != chain {
			s.byChain[prev.ChainID] = removeVault(s.byChain[prev.ChainID], v.ID)
		}
	}
	for _, old := range s.byChain[chain] {
		delete(s.byID, old.ID)
	}
	s.byChain[chain] = batch
	for _, v := range batch {
		s.byID[v.ID] = v
	}
	return nil
}

// GetByID retrieves a vault by its ID. Returns ErrNotFound if not exists.
func (s *VaultStore) GetByID(_ context.Context, id string) (*domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	vaultCopy := *v
	return &vaultCopy, nil
}

// GetByChain retrieves all vaults of a chain, ordered by id ASC.
func (s *VaultStore) GetByChain(_ context.Context, chain domain.ChainID) ([]*domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyVaults(s.byChain[chain]), nil
}

// GetAll retrieves the vaults of every chain, ordered by (chain, id) ASC.
func (s *VaultStore) GetAll(_ context.Context) ([]*domain.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chains := make([]domain.ChainID, 0, len(s.byChain))
	for c := range s.byChain {
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })

	var result []*domain.Vault
	for _, c := range chains {
		result = append(result, copyVaults(s.byChain[c])...)
	}
	return result, nil
}

func copyVaults(src []*domain.Vault) []*domain.Vault {
	result := make([]*domain.Vault, 0, len(src))
	for _, v := range src {
		vaultCopy := *v
		result = append(result, &vaultCopy)
	}
	return result
}

func removeVault(src []*domain.Vault, id string) []*domain.Vault {
	out := src[:0:0]
	for _, v := range src {
		if v.ID != id {
			out = append(out, v)
		}
	}
	return out
}

var _ storage.VaultStore = (*VaultStore)(nil)
