package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// Ledger is an in-memory implementation of storage.Ledger.
type Ledger struct {
	mu     sync.RWMutex
	rows   []domain.EnrichedTransfer
	nextID int64
	cursor int // 0 = unset
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{nextID: 1}
}

// CommitPage appends transfers and moves the resume cursor.
func (l *Ledger) CommitPage(_ context.Context, transfers []domain.Transfer, nextPage int) error {
	if nextPage < 1 {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range transfers {
		if !t.Action.Valid() {
			return storage.ErrInvalidInput
		}
	}
	for _, t := range transfers {
		l.rows = append(l.rows, domain.EnrichedTransfer{Transfer: t, RowID: l.nextID})
		l.nextID++
	}
	l.cursor = nextPage
	return nil
}

// NextPage returns the resume cursor, 1 if unset.
func (l *Ledger) NextPage(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.cursor == 0 {
		return 1, nil
	}
	return l.cursor, nil
}

// Count returns the number of rows.
func (l *Ledger) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.rows), nil
}

// TimeRange returns the first and last timestamps.
func (l *Ledger) TimeRange(_ context.Context) (int64, int64, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.rows) == 0 {
		return 0, 0, false, nil
	}
	first, last := l.rows[0].Timestamp, l.rows[0].Timestamp
	for _, r := range l.rows[1:] {
		if r.Timestamp < first {
			first = r.Timestamp
		}
		if r.Timestamp > last {
			last = r.Timestamp
		}
	}
	return first, last, true, nil
}

// DistinctTokens returns distinct token addresses by first appearance.
func (l *Ledger) DistinctTokens(_ context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	tokens := []string{}
	for _, r := range l.rows {
		if r.Token == "" || seen[r.Token] {
			continue
		}
		seen[r.Token] = true
		tokens = append(tokens, r.Token)
	}
	return tokens, nil
}

// ApplyMetadata writes token identity onto every row of the token.
func (l *Ledger) ApplyMetadata(_ context.Context, meta domain.TokenMetadata) (int64, error) {
	if meta.Address == "" || meta.Decimals < 0 {
		return 0, storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	divisor := math.Pow(10, float64(meta.Decimals))
	var n int64
	for i := range l.rows {
		r := &l.rows[i]
		if r.Token != meta.Address {
			continue
		}
		symbol, name, decimals := meta.Symbol, meta.Name, meta.Decimals
		human := r.Amount / divisor
		r.Symbol = &symbol
		r.Name = &name
		r.Decimals = &decimals
		r.AmountHuman = &human
		n++
	}
	return n, nil
}

// Unpriced returns rows with decimals and no price.
func (l *Ledger) Unpriced(_ context.Context) ([]domain.EnrichedTransfer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := []domain.EnrichedTransfer{}
	for _, r := range l.sorted() {
		if r.Decimals != nil && r.PriceUSD == nil {
			result = append(result, r)
		}
	}
	return result, nil
}

// ApplyPrice prices the given rows.
func (l *Ledger) ApplyPrice(_ context.Context, rowIDs []int64, priceUSD, marketCapUSD float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make(map[int64]bool, len(rowIDs))
	for _, id := range rowIDs {
		ids[id] = true
	}
	for i := range l.rows {
		r := &l.rows[i]
		if !ids[r.RowID] {
			continue
		}
		price, mcap := priceUSD, marketCapUSD
		r.PriceUSD = &price
		r.MarketCapUSD = &mcap
		if r.AmountHuman != nil {
			usd := *r.AmountHuman * priceUSD
			r.AmountUSD = &usd
		}
	}
	return nil
}

// Load returns all rows ordered by timestamp.
func (l *Ledger) Load(_ context.Context) ([]domain.EnrichedTransfer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.sorted(), nil
}

// Retain drops every row not listed in keep.
func (l *Ledger) Retain(_ context.Context, keep []int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make(map[int64]bool, len(keep))
	for _, id := range keep {
		ids[id] = true
	}
	kept := l.rows[:0]
	for _, r := range l.rows {
		if ids[r.RowID] {
			kept = append(kept, r)
		}
	}
	l.rows = kept
	return nil
}

// Close is a no-op; data stays readable until the factory removes it.
func (l *Ledger) Close() error {
	return nil
}

// sorted returns deep copies ordered by (timestamp, row id). Caller holds the lock.
func (l *Ledger) sorted() []domain.EnrichedTransfer {
	out := make([]domain.EnrichedTransfer, len(l.rows))
	for i, r := range l.rows {
		out[i] = cloneRow(r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].RowID < out[j].RowID
	})
	return out
}

func cloneRow(r domain.EnrichedTransfer) domain.EnrichedTransfer {
	c := r
	c.Symbol = clonePtr(r.Symbol)
	c.Name = clonePtr(r.Name)
	c.Decimals = clonePtr(r.Decimals)
	c.AmountHuman = clonePtr(r.AmountHuman)
	c.PriceUSD = clonePtr(r.PriceUSD)
	c.AmountUSD = clonePtr(r.AmountUSD)
	c.MarketCapUSD = clonePtr(r.MarketCapUSD)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// LedgerFactory hands out in-memory ledgers keyed by session id.
type LedgerFactory struct {
	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewLedgerFactory creates an empty factory.
func NewLedgerFactory() *LedgerFactory {
	return &LedgerFactory{ledgers: make(map[string]*Ledger)}
}

// Open returns the session's ledger, creating it on first use.
func (f *LedgerFactory) Open(_ context.Context, sessionID string) (storage.Ledger, error) {
	if sessionID == "" {
		return nil, storage.ErrInvalidInput
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.ledgers[sessionID]
	if !ok {
		l = NewLedger()
		f.ledgers[sessionID] = l
	}
	return l, nil
}

// Remove discards the session's ledger.
func (f *LedgerFactory) Remove(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.ledgers, sessionID)
	return nil
}

// Exists reports whether a ledger is held for the session.
func (f *LedgerFactory) Exists(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.ledgers[sessionID]
	return ok
}

var (
	_ storage.Ledger        = (*Ledger)(nil)
	_ storage.LedgerFactory = (*LedgerFactory)(nil)
)
