package memory

import (
	"context"
	"sync"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// PriceSampleStore is an in-memory implementation of storage.PriceSampleStore.
type PriceSampleStore struct {
	mu      sync.RWMutex
	windows map[storage.PriceWindow][]domain.PricePoint
}

// NewPriceSampleStore creates an empty price cache.
func NewPriceSampleStore() *PriceSampleStore {
	return &PriceSampleStore{
		windows: make(map[storage.PriceWindow][]domain.PricePoint),
	}
}

// GetWindow returns cached samples for the window.
func (s *PriceSampleStore) GetWindow(_ context.Context, w storage.PriceWindow) ([]domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.windows[w]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]domain.PricePoint(nil), points...), nil
}

// PutWindow caches samples for the window.
func (s *PriceSampleStore) PutWindow(_ context.Context, w storage.PriceWindow, points []domain.PricePoint) error {
	if w.Token == "" || w.From > w.To {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[w] = append([]domain.PricePoint(nil), points...)
	return nil
}

var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)
