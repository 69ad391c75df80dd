package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-wallet-lab/internal/storage"
)

// WalletRegistry is a PostgreSQL implementation of storage.WalletRegistry.
// The primary key on evaluated_wallets makes the reservation atomic.
type WalletRegistry struct {
	pool     *Pool
	lockWait time.Duration
}

// NewWalletRegistry creates a new PostgreSQL wallet registry.
func NewWalletRegistry(pool *Pool, lockWait time.Duration) *WalletRegistry {
	return &WalletRegistry{pool: pool, lockWait: lockWait}
}

// CheckAndReserve inserts wallet unless already present.
func (r *WalletRegistry) CheckAndReserve(ctx context.Context, wallet string) (bool, error) {
	if wallet == "" {
		return false, storage.ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	var inserted string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO evaluated_wallets (wallet)
		VALUES ($1)
		ON CONFLICT (wallet) DO NOTHING
		RETURNING wallet
	`, wallet).Scan(&inserted)
	if isNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, fmt.Errorf("%w: %v", storage.ErrLockTimeout, err)
		}
		return false, err
	}
	return true, nil
}

// Contains reports whether wallet was reserved.
func (r *WalletRegistry) Contains(ctx context.Context, wallet string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM evaluated_wallets WHERE wallet = $1)
	`, wallet).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// List returns wallets in reservation order.
func (r *WalletRegistry) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT wallet FROM evaluated_wallets ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

var _ storage.WalletRegistry = (*WalletRegistry)(nil)
