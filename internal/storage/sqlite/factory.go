package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"solana-wallet-lab/internal/storage"
)

// LedgerFactory places one ledger file per session under a data directory.
type LedgerFactory struct {
	dir string
}

// NewLedgerFactory creates a factory rooted at dir.
func NewLedgerFactory(dir string) *LedgerFactory {
	return &LedgerFactory{dir: dir}
}

// Path returns the ledger file of a session.
func (f *LedgerFactory) Path(sessionID string) string {
	return filepath.Join(f.dir, fmt.Sprintf("ledger_%s.db", filepath.Base(sessionID)))
}

// Open opens or creates the session's ledger. Reopening resumes from the persisted cursor.
func (f *LedgerFactory) Open(ctx context.Context, sessionID string) (storage.Ledger, error) {
	if sessionID == "" {
		return nil, storage.ErrInvalidInput
	}
	return OpenLedger(ctx, f.Path(sessionID))
}

// Remove deletes the session's ledger file and its WAL side files.
func (f *LedgerFactory) Remove(sessionID string) error {
	base := f.Path(sessionID)
	var errs []error
	for _, p := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("remove ledger %s: %w", sessionID, errors.Join(errs...))
	}
	return nil
}

// Exists reports whether the session's ledger file is present.
func (f *LedgerFactory) Exists(sessionID string) bool {
	_, err := os.Stat(f.Path(sessionID))
	return err == nil
}

var _ storage.LedgerFactory = (*LedgerFactory)(nil)
