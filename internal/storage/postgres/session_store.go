package postgres

import (
	"context"
	"time"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// SessionStore is a PostgreSQL implementation of storage.SessionStore.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new PostgreSQL session store.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create inserts a session record.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.ID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, wallet, slot_id, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID, sess.Wallet, sess.Slot, string(sess.Status), sess.StartTime.UTC(), sess.EndTime)
	if isDuplicateKeyError(err) {
		return storage.ErrDuplicateKey
	}
	return err
}

// Finish writes the terminal status and end time.
func (s *SessionStore) Finish(ctx context.Context, sessionID string, status domain.SessionStatus, endTime time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET status = $2, end_time = $3
		WHERE session_id = $1
	`, sessionID, string(status), endTime.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves a session by id.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var (
		sess   domain.Session
		status string
		end    *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, wallet, slot_id, status, start_time, end_time
		FROM sessions WHERE session_id = $1
	`, sessionID).Scan(&sess.ID, &sess.Wallet, &sess.Slot, &status, &sess.StartTime, &end)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sess.Status = domain.SessionStatus(status)
	sess.StartTime = sess.StartTime.UTC()
	if end != nil {
		e := end.UTC()
		sess.EndTime = &e
	}
	return &sess, nil
}

var _ storage.SessionStore = (*SessionStore)(nil)
