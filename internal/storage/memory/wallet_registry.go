package memory

import (
	"context"
	"sync"

	"solana-wallet-lab/internal/storage"
)

// WalletRegistry is an in-memory implementation of storage.WalletRegistry.
type WalletRegistry struct {
	mu      sync.RWMutex
	order   []string
	wallets map[string]bool
}

// NewWalletRegistry creates an empty registry.
func NewWalletRegistry() *WalletRegistry {
	return &WalletRegistry{
		wallets: make(map[string]bool),
	}
}

// CheckAndReserve inserts wallet if absent.
func (r *WalletRegistry) CheckAndReserve(_ context.Context, wallet string) (bool, error) {
	if wallet == "" {
		return false, storage.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wallets[wallet] {
		return false, nil
	}
	r.wallets[wallet] = true
	r.order = append(r.order, wallet)
	return true, nil
}

// Contains reports whether wallet was reserved.
func (r *WalletRegistry) Contains(_ context.Context, wallet string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.wallets[wallet], nil
}

// List returns wallets in reservation order.
func (r *WalletRegistry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string{}, r.order...), nil
}

var _ storage.WalletRegistry = (*WalletRegistry)(nil)
