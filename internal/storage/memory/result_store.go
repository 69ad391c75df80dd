package memory

import (
	"context"
	"sync"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
// Records are kept encoded so reads never alias the caller's value.
type ResultStore struct {
	mu        sync.RWMutex
	byWallet  map[string][]byte
	bySession map[string]string // session id -> wallet
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		byWallet:  make(map[string][]byte),
		bySession: make(map[string]string),
	}
}

// Put stores the record for its wallet.
func (s *ResultStore) Put(_ context.Context, r *domain.SessionResult) error {
	if r == nil || r.WalletAddress == "" {
		return storage.ErrInvalidInput
	}
	data, err := domain.EncodeResult(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byWallet[r.WalletAddress] = data
	s.bySession[r.SessionID] = r.WalletAddress
	return nil
}

// GetByWallet retrieves the result for a wallet.
func (s *ResultStore) GetByWallet(_ context.Context, wallet string) (*domain.SessionResult, error) {
	s.mu.RLock()
	data, ok := s.byWallet[wallet]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	return domain.DecodeResult(data)
}

// GetBySession retrieves the result written by a session.
func (s *ResultStore) GetBySession(ctx context.Context, sessionID string) (*domain.SessionResult, error) {
	s.mu.RLock()
	wallet, ok := s.bySession[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	r, err := s.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if r.SessionID != sessionID {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

var _ storage.ResultStore = (*ResultStore)(nil)
