package memory

import (
	"context"
	"sort"
	"sync"

	"token-registry/internal/domain"
	"token-registry/internal/storage"
)

// BoostStore is an in-memory implementation of storage.BoostStore.
type BoostStore struct {
	mu      sync.RWMutex
	byChain map[domain.ChainID][]*domain.Boost // sorted by id
	byID    map[string]*domain.Boost
}

// NewBoostStore creates a new in-memory boost store.
func NewBoostStore() *BoostStore {
	return &BoostStore{
		byChain: make(map[domain.ChainID][]*domain.Boost),
		byID:    make(map[string]*domain.Boost),
	}
}

// ReplaceChain atomically replaces all boosts of a chain.
func (s *BoostStore) ReplaceChain(_ context.Context, chain domain.ChainID, boosts []*domain.Boost) error {
	if err := storage.ValidateBoosts(chain, boosts); err != nil {
		return err
	}

	batch := make([]*domain.Boost, 0, len(boosts))
	for _, b := range boosts {
		batch = append(batch, b.Clone())
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range batch {
		if prev, ok := s.byID[b.ID]; ok && prev.ChainID != chain {
			s.byChain[prev.ChainID] = removeBoost(s.byChain[prev.ChainID], b.ID)
		}
	}
	for _, old := range s.byChain[chain] {
		delete(s.byID, old.ID)
	}
	s.byChain[chain] = batch
	for _, b := range batch {
		s.byID[b.ID] = b
	}
	return nil
}

// GetByID retrieves a boost by its ID. Returns ErrNotFound if not exists.
func (s *BoostStore) GetByID(_ context.Context, id string) (*domain.Boost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return b.Clone(), nil
}

// GetActiveByChain retrieves the active boosts of a chain, ordered by id ASC.
func (s *BoostStore) GetActiveByChain(_ context.Context, chain domain.ChainID) ([]*domain.Boost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Boost, 0, len(s.byChain[chain]))
	for _, b := range s.byChain[chain] {
		if b.Status == domain.BoostStatusActive {
			result = append(result, b.Clone())
		}
	}
	return result, nil
}

func removeBoost(src []*domain.Boost, id string) []*domain.Boost {
	out := src[:0:0]
	for _, b := range src {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

var _ storage.BoostStore = (*BoostStore)(nil)
