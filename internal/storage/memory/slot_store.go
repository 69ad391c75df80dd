package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// SlotStore is an in-memory implementation of storage.SlotStore.
// Safe for concurrent use within one process.
type SlotStore struct {
	mu       sync.Mutex
	defaults []string
	table    map[string]domain.SlotState // nil until first Acquire
}

// NewSlotStore creates a slot store provisioned with slotIDs on first use.
func NewSlotStore(slotIDs []string) *SlotStore {
	ids := append([]string(nil), slotIDs...)
	sort.Strings(ids)
	return &SlotStore{defaults: ids}
}

// Acquire marks the first FREE slot IN_USE.
func (s *SlotStore) Acquire(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		s.table = make(map[string]domain.SlotState, len(s.defaults))
		for _, id := range s.defaults {
			s.table[id] = domain.SlotFree
		}
	}

	for _, id := range s.sortedIDs() {
		if s.table[id] == domain.SlotFree {
			s.table[id] = domain.SlotInUse
			return id, nil
		}
	}
	return "", storage.ErrNoSlotAvailable
}

// Release sets a slot back to FREE.
func (s *SlotStore) Release(_ context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil
	}
	if _, ok := s.table[slotID]; ok {
		s.table[slotID] = domain.SlotFree
	}
	return nil
}

// List returns the slot table ordered by id.
func (s *SlotStore) List(_ context.Context) ([]domain.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Slot, 0, len(s.table))
	for _, id := range s.sortedIDs() {
		result = append(result, domain.Slot{ID: id, State: s.table[id]})
	}
	return result, nil
}

func (s *SlotStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.table))
	for id := range s.table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ storage.SlotStore = (*SlotStore)(nil)
