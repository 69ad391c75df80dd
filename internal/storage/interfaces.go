package storage

import (
	"context"
	"time"

	"solana-wallet-lab/internal/domain"
)

// SlotStore is the shared slot table.
// Implementations must make Acquire a single atomic find-and-mark across processes.
type SlotStore interface {
	// Acquire marks the first FREE slot (ordered by id) IN_USE and returns its id.
	// The table is provisioned with the default slot ids on first use.
	// Returns ErrNoSlotAvailable if all slots are IN_USE, ErrLockTimeout if the lock wait expires.
	Acquire(ctx context.Context) (string, error)

	// Release sets the slot back to FREE. Idempotent; a no-op if the table
	// or the slot does not exist.
	Release(ctx context.Context, slotID string) error

	// List returns the slot table ordered by id.
	List(ctx context.Context) ([]domain.Slot, error)
}

// WalletRegistry is the persisted set of wallets already evaluated.
type WalletRegistry interface {
	// CheckAndReserve atomically inserts wallet if absent.
	// Returns false without mutating when the wallet was already present.
	CheckAndReserve(ctx context.Context, wallet string) (bool, error)

	// Contains reports whether wallet was already evaluated. Read-only.
	Contains(ctx context.Context, wallet string) (bool, error)

	// List returns all wallets in reservation order.
	List(ctx context.Context) ([]string, error)
}

// SessionStore holds session status records keyed by session id.
type SessionStore interface {
	// Create inserts a Running session. Returns ErrDuplicateKey if the id exists.
	Create(ctx context.Context, s *domain.Session) error

	// Finish writes the terminal status and end time. Returns ErrNotFound if the id is unknown.
	Finish(ctx context.Context, sessionID string, status domain.SessionStatus, endTime time.Time) error

	// Get retrieves a session by id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// ResultStore holds one result record per wallet address.
type ResultStore interface {
	// Put stores the record, replacing any previous record for the wallet.
	Put(ctx context.Context, r *domain.SessionResult) error

	// GetByWallet retrieves a result by wallet. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.SessionResult, error)

	// GetBySession retrieves a result by session id. Returns ErrNotFound if not exists.
	GetBySession(ctx context.Context, sessionID string) (*domain.SessionResult, error)
}

// Ledger is a session-private store of transfer rows plus the resume cursor.
type Ledger interface {
	// CommitPage appends transfers and sets the next page to fetch in one transaction.
	CommitPage(ctx context.Context, transfers []domain.Transfer, nextPage int) error

	// NextPage returns the persisted resume cursor, or 1 if none was saved.
	NextPage(ctx context.Context) (int, error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)

	// TimeRange returns the first and last row timestamps. ok is false when empty.
	TimeRange(ctx context.Context) (first, last int64, ok bool, err error)

	// DistinctTokens returns the distinct token addresses, ordered by first appearance.
	DistinctTokens(ctx context.Context) ([]string, error)

	// ApplyMetadata writes symbol/name/decimals and amount_human onto every row of the token.
	ApplyMetadata(ctx context.Context, meta domain.TokenMetadata) (int64, error)

	// Unpriced returns rows with resolved decimals and no price, ordered by timestamp.
	Unpriced(ctx context.Context) ([]domain.EnrichedTransfer, error)

	// ApplyPrice sets price_usd, amount_usd and market_cap_usd on the given rows.
	ApplyPrice(ctx context.Context, rowIDs []int64, priceUSD, marketCapUSD float64) error

	// Load returns every row ordered by timestamp.
	Load(ctx context.Context) ([]domain.EnrichedTransfer, error)

	// Retain deletes every row whose id is not in keep.
	Retain(ctx context.Context, keep []int64) error

	// Close releases the underlying handle.
	Close() error
}

// LedgerFactory opens and removes per-session ledgers.
type LedgerFactory interface {
	// Open returns the ledger of a session, creating it if needed.
	Open(ctx context.Context, sessionID string) (Ledger, error)

	// Remove deletes the ledger of a session. A no-op if it does not exist.
	Remove(sessionID string) error

	// Exists reports whether a ledger was left behind for the session,
	// i.e. a previous run of the same session was interrupted.
	Exists(sessionID string) bool
}

// PriceWindow identifies a cached price-history query.
type PriceWindow struct {
	Token string
	From  int64 // unix seconds, inclusive
	To    int64 // unix seconds, inclusive
}

// PriceSampleStore caches historical price samples across sessions.
type PriceSampleStore interface {
	// GetWindow returns the cached samples ordered as originally returned.
	// Returns ErrNotFound if the window was never cached.
	GetWindow(ctx context.Context, w PriceWindow) ([]domain.PricePoint, error)

	// PutWindow stores samples for the window. Empty sample sets are not cached.
	PutWindow(ctx context.Context, w PriceWindow, points []domain.PricePoint) error
}
