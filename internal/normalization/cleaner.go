package normalization

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// DefaultRetainRows is the number of rows kept for analysis.
const DefaultRetainRows = 50

// Cleaner trims a session ledger down to the rows analysis can use.
type Cleaner struct {
	retain int
	logger *zap.Logger
}

// CleanerOptions contains configuration for creating a Cleaner.
type CleanerOptions struct {
	Retain int // Default: 50
	Logger *zap.Logger
}

// NewCleaner creates a new Cleaner.
func NewCleaner(opts CleanerOptions) *Cleaner {
	retain := opts.Retain
	if retain <= 0 {
		retain = DefaultRetainRows
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{retain: retain, logger: logger}
}

// CleanResult describes what Clean kept.
type CleanResult struct {
	Total    int // rows before cleaning
	Eligible int // rows passing the filter
	Kept     int // rows left in the ledger
}

// Clean keeps the earliest eligible rows and deletes the rest.
// When no row is eligible the ledger is left untouched.
func (c *Cleaner) Clean(ctx context.Context, ledger storage.Ledger) (CleanResult, error) {
	rows, err := ledger.Load(ctx)
	if err != nil {
		return CleanResult{}, fmt.Errorf("load ledger: %w", err)
	}
	SortRows(rows)

	res := CleanResult{Total: len(rows)}
	keep := make([]int64, 0, c.retain)
	for i := range rows {
		if !Eligible(&rows[i]) {
			continue
		}
		res.Eligible++
		if len(keep) < c.retain {
			keep = append(keep, rows[i].RowID)
		}
	}

	if len(keep) == 0 {
		res.Kept = res.Total
		c.logger.Warn("cleaner-no-eligible-rows", zap.Int("rows", res.Total))
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := ledger.Retain(ctx, keep); err != nil {
		return res, fmt.Errorf("retain rows: %w", err)
	}
	res.Kept = len(keep)

	c.logger.Info("cleaner-done",
		zap.Int("rows", res.Total),
		zap.Int("eligible", res.Eligible),
		zap.Int("kept", res.Kept))
	return res, nil
}

// Eligible reports whether a row is a BUY or SELL with resolved decimals
// and a real symbol.
func Eligible(row *domain.EnrichedTransfer) bool {
	if !row.Action.Valid() || row.Decimals == nil {
		return false
	}
	if row.Symbol == nil || *row.Symbol == "" {
		return false
	}
	return !domain.IsSyntheticSymbol(*row.Symbol)
}
