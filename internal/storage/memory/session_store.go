package memory

import (
	"context"
	"sync"
	"time"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.Session),
	}
}

// Create inserts a session record.
func (s *SessionStore) Create(_ context.Context, sess *domain.Session) error {
	if sess == nil || sess.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

// Finish writes the terminal status.
func (s *SessionStore) Finish(_ context.Context, sessionID string, status domain.SessionStatus, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return storage.ErrNotFound
	}
	end := endTime.UTC()
	sess.Status = status
	sess.EndTime = &end
	return nil
}

// Get retrieves a session by id.
func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copySession(sess), nil
}

func copySession(sess *domain.Session) *domain.Session {
	c := *sess
	if sess.EndTime != nil {
		end := *sess.EndTime
		c.EndTime = &end
	}
	return &c
}

var _ storage.SessionStore = (*SessionStore)(nil)
