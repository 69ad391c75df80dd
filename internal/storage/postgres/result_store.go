package postgres

import (
	"context"
	"fmt"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// ResultStore is a PostgreSQL implementation of storage.ResultStore.
// Records are stored as JSONB in their persisted wire form.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new PostgreSQL result store.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Put upserts the record for its wallet.
func (s *ResultStore) Put(ctx context.Context, r *domain.SessionResult) error {
	if r == nil || r.WalletAddress == "" {
		return storage.ErrInvalidInput
	}
	data, err := domain.EncodeResult(r)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_results (wallet, session_id, record, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (wallet) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    record = EXCLUDED.record,
		    updated_at = NOW()
	`, r.WalletAddress, r.SessionID, string(data))
	if err != nil {
		return fmt.Errorf("put result %s: %w", r.WalletAddress, err)
	}
	return nil
}

// GetByWallet retrieves the result for a wallet.
func (s *ResultStore) GetByWallet(ctx context.Context, wallet string) (*domain.SessionResult, error) {
	return s.get(ctx, `SELECT record::text FROM session_results WHERE wallet = $1`, wallet)
}

// GetBySession retrieves the result written by a session.
func (s *ResultStore) GetBySession(ctx context.Context, sessionID string) (*domain.SessionResult, error) {
	return s.get(ctx, `SELECT record::text FROM session_results WHERE session_id = $1`, sessionID)
}

func (s *ResultStore) get(ctx context.Context, query string, key string) (*domain.SessionResult, error) {
	var raw string
	err := s.pool.QueryRow(ctx, query, key).Scan(&raw)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeResult([]byte(raw))
}

var _ storage.ResultStore = (*ResultStore)(nil)
