package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/provider"
)

// Fetcher retrieves one page of a wallet's history and turns its transfer
// entries into BUY/SELL transfers.
type Fetcher struct {
	source        provider.TransferSource
	pageSize      int
	subBatchSize  int
	subBatchDelay time.Duration
	sentinels     map[string]struct{}
	sleep         func(context.Context, time.Duration) error
	logger        *zap.Logger
}

// FetcherOptions contains configuration for creating a Fetcher.
type FetcherOptions struct {
	Source        provider.TransferSource
	PageSize      int           // Default: 1000 signatures
	SubBatchSize  int           // Default: 100 signatures per transfer lookup
	SubBatchDelay time.Duration // pause between transfer lookups
	Sentinels     []string      // burn/mint placeholder addresses
	Sleep         func(context.Context, time.Duration) error
	Logger        *zap.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	subBatch := opts.SubBatchSize
	if subBatch <= 0 {
		subBatch = 100
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sentinels := make(map[string]struct{}, len(opts.Sentinels))
	for _, s := range opts.Sentinels {
		sentinels[s] = struct{}{}
	}

	return &Fetcher{
		source:        opts.Source,
		pageSize:      pageSize,
		subBatchSize:  subBatch,
		subBatchDelay: opts.SubBatchDelay,
		sentinels:     sentinels,
		sleep:         sleep,
		logger:        logger,
	}
}

// Page is the outcome of one FetchPage call.
type Page struct {
	Signatures int               // signatures listed on the page; 0 means end of history
	Transfers  []domain.Transfer // valid transfers, sorted
	Truncated  bool              // the limit was reached before the page was exhausted
}

// FetchPage retrieves page (1-based) for wallet and classifies its entries.
// It returns as soon as limit valid transfers have been collected.
func (f *Fetcher) FetchPage(ctx context.Context, wallet string, page, limit int) (Page, error) {
	var out Page

	start := time.Now()
	sigs, err := f.source.ListSignatures(ctx, wallet, page, f.pageSize)
	observability.RecordProviderCall("transfers", "list_signatures", time.Since(start).Seconds(), err)
	if err != nil {
		return out, fmt.Errorf("list signatures page %d: %w", page, err)
	}
	out.Signatures = len(sigs)

	for i := 0; i < len(sigs); i += f.subBatchSize {
		if i > 0 && f.subBatchDelay > 0 {
			if err := f.sleep(ctx, f.subBatchDelay); err != nil {
				return out, err
			}
		}

		end := min(i+f.subBatchSize, len(sigs))
		start := time.Now()
		entries, err := f.source.GetTransfers(ctx, sigs[i:end])
		observability.RecordProviderCall("transfers", "get_transfers", time.Since(start).Seconds(), err)
		if err != nil {
			return out, fmt.Errorf("get transfers page %d batch %d: %w", page, i/f.subBatchSize, err)
		}

		for _, e := range entries {
			t, ok := f.classify(wallet, e)
			if !ok {
				continue
			}
			out.Transfers = append(out.Transfers, t)
			if limit > 0 && len(out.Transfers) >= limit {
				out.Truncated = true
				SortTransfers(out.Transfers)
				return out, nil
			}
		}
	}

	SortTransfers(out.Transfers)
	return out, nil
}

// classify maps an entry to BUY (wallet receives) or SELL (wallet sends).
// Entries touching a sentinel address or not involving wallet are dropped.
func (f *Fetcher) classify(wallet string, e provider.TransferEntry) (domain.Transfer, bool) {
	if e.Token == "" || f.isSentinel(e.Source) || f.isSentinel(e.Destination) {
		return domain.Transfer{}, false
	}

	var action domain.Action
	switch wallet {
	case e.Destination:
		action = domain.ActionBuy
	case e.Source:
		action = domain.ActionSell
	default:
		return domain.Transfer{}, false
	}

	return domain.Transfer{
		Signature:   e.Signature,
		Timestamp:   e.Timestamp,
		Token:       e.Token,
		Amount:      e.Amount,
		Action:      action,
		Source:      e.Source,
		Destination: e.Destination,
	}, true
}

func (f *Fetcher) isSentinel(addr string) bool {
	_, ok := f.sentinels[addr]
	return ok
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
