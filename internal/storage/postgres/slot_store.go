package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// SlotStore is a PostgreSQL implementation of storage.SlotStore.
// Every mutation runs in a transaction holding an EXCLUSIVE lock on
// session_slots, acquired under lock_timeout so callers fail fast.
type SlotStore struct {
	pool     *Pool
	slotIDs  []string
	lockWait time.Duration
}

// NewSlotStore creates a slot store that provisions slotIDs on first use.
func NewSlotStore(pool *Pool, slotIDs []string, lockWait time.Duration) *SlotStore {
	ids := append([]string(nil), slotIDs...)
	sort.Strings(ids)
	return &SlotStore{pool: pool, slotIDs: ids, lockWait: lockWait}
}

// Acquire marks the first FREE slot IN_USE and returns its id.
func (s *SlotStore) Acquire(ctx context.Context) (string, error) {
	var slotID string
	err := s.withTableLock(ctx, func(tx pgx.Tx) error {
		// Provision the default pool only when the table is empty.
		if _, err := tx.Exec(ctx, `
			INSERT INTO session_slots (slot_id, state)
			SELECT id, 'FREE' FROM unnest($1::text[]) AS id
			WHERE NOT EXISTS (SELECT 1 FROM session_slots)
		`, s.slotIDs); err != nil {
			return fmt.Errorf("provision slots: %w", err)
		}

		err := tx.QueryRow(ctx, `
			UPDATE session_slots
			SET state = 'IN_USE', updated_at = NOW()
			WHERE slot_id = (
				SELECT slot_id FROM session_slots
				WHERE state = 'FREE'
				ORDER BY slot_id COLLATE "C"
				LIMIT 1
			)
			RETURNING slot_id
		`).Scan(&slotID)
		if isNotFoundError(err) {
			return storage.ErrNoSlotAvailable
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return slotID, nil
}

// Release sets the slot back to FREE. A missing table counts as already clean.
func (s *SlotStore) Release(ctx context.Context, slotID string) error {
	err := s.withTableLock(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE session_slots
			SET state = 'FREE', updated_at = NOW()
			WHERE slot_id = $1
		`, slotID)
		return err
	})
	if isUndefinedTableError(err) {
		return nil
	}
	return err
}

// List returns the slot table ordered by id.
func (s *SlotStore) List(ctx context.Context) ([]domain.Slot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slot_id, state FROM session_slots
		ORDER BY slot_id COLLATE "C"
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []domain.Slot{}
	for rows.Next() {
		var slot domain.Slot
		var state string
		if err := rows.Scan(&slot.ID, &state); err != nil {
			return nil, err
		}
		slot.State = domain.SlotState(state)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// withTableLock runs fn inside a transaction holding the slot table lock.
func (s *SlotStore) withTableLock(ctx context.Context, fn func(pgx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.lockWait+time.Second)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapLockErr(ctx, fmt.Errorf("begin slot transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockWait.Milliseconds())); err != nil {
		return mapLockErr(ctx, err)
	}
	if _, err := tx.Exec(ctx, `LOCK TABLE session_slots IN EXCLUSIVE MODE`); err != nil {
		return mapLockErr(ctx, err)
	}

	if err := fn(tx); err != nil {
		return mapLockErr(ctx, err)
	}
	return mapLockErr(ctx, tx.Commit(ctx))
}

// mapLockErr converts lock waits that ran out into storage.ErrLockTimeout.
func mapLockErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if isLockTimeoutError(err) {
		return storage.ErrLockTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", storage.ErrLockTimeout, err)
	}
	return err
}

var _ storage.SlotStore = (*SlotStore)(nil)
