package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/storage"
)

// StopReason tells why an ingestion run ended.
type StopReason string

const (
	StopBudget     StopReason = "budget"      // wall-clock budget exhausted
	StopFetchError StopReason = "fetch_error" // upstream error, treated as end of history
	StopEmptyPage  StopReason = "empty_page"  // no more signatures
	StopCeiling    StopReason = "ceiling"     // max transfers collected
)

// Summary describes a finished ingestion run.
type Summary struct {
	Stop      StopReason
	StartPage int   // cursor the run resumed from
	NextPage  int   // cursor persisted at the end
	Pages     int   // pages committed by this run
	Ingested  int   // transfers committed by this run
	Total     int   // rows in the ledger afterwards
	Truncated bool  // the ceiling cut the last committed page short
	FetchErr  error // set when Stop is StopFetchError
}

// Runner drives a Fetcher against a session Ledger, resuming from the
// persisted cursor and committing each page atomically with the next cursor.
type Runner struct {
	fetcher      *Fetcher
	budget       time.Duration
	maxTransfers int
	now          func() time.Time
	logger       *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Fetcher      *Fetcher
	Budget       time.Duration // Default: 4m
	MaxTransfers int           // Default: 1000
	Now          func() time.Time
	Logger       *zap.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	budget := opts.Budget
	if budget <= 0 {
		budget = 4 * time.Minute
	}
	maxTransfers := opts.MaxTransfers
	if maxTransfers <= 0 {
		maxTransfers = 1000
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		fetcher:      opts.Fetcher,
		budget:       budget,
		maxTransfers: maxTransfers,
		now:          now,
		logger:       logger,
	}
}

// Run ingests wallet history into ledger until the budget is spent, a fetch
// fails, a page comes back empty or the transfer ceiling is reached.
// Only ledger failures and context cancellation are returned as errors.
func (r *Runner) Run(ctx context.Context, wallet string, ledger storage.Ledger) (Summary, error) {
	var sum Summary

	page, err := ledger.NextPage(ctx)
	if err != nil {
		return sum, fmt.Errorf("read resume cursor: %w", err)
	}
	total, err := ledger.Count(ctx)
	if err != nil {
		return sum, fmt.Errorf("count ledger: %w", err)
	}
	sum.StartPage, sum.NextPage, sum.Total = page, page, total

	if page > 1 {
		r.logger.Info("ingestion-resumed", zap.Int("page", page), zap.Int("rows", total))
	}

	started := r.now()
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if sum.Total >= r.maxTransfers {
			sum.Stop = StopCeiling
			break
		}
		if r.now().Sub(started) >= r.budget {
			sum.Stop = StopBudget
			break
		}

		res, err := r.fetcher.FetchPage(ctx, wallet, page, r.maxTransfers-sum.Total)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sum, ctxErr
			}
			r.logger.Warn("ingestion-fetch-failed", zap.Int("page", page), zap.Error(err))
			sum.Stop = StopFetchError
			sum.FetchErr = err
			break
		}
		if res.Signatures == 0 {
			sum.Stop = StopEmptyPage
			break
		}

		if err := ValidateTransferOrdering(res.Transfers); err != nil {
			return sum, fmt.Errorf("page %d: %w", page, err)
		}
		if err := ledger.CommitPage(ctx, res.Transfers, page+1); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sum, err
			}
			return sum, fmt.Errorf("commit page %d: %w", page, err)
		}
		observability.RecordPage(len(res.Transfers))

		page++
		sum.NextPage = page
		sum.Pages++
		sum.Ingested += len(res.Transfers)
		sum.Total += len(res.Transfers)

		r.logger.Info("ingestion-page-committed",
			zap.Int("page", page-1),
			zap.Int("signatures", res.Signatures),
			zap.Int("transfers", len(res.Transfers)),
			zap.Int("total", sum.Total))
		if res.Truncated {
			sum.Truncated = true
			r.logger.Warn("ingestion-page-truncated",
				zap.Int("page", page-1),
				zap.Int("max_transfers", r.maxTransfers))
		}
	}

	observability.RecordIngestionStop(string(sum.Stop))
	r.logger.Info("ingestion-stopped",
		zap.String("reason", string(sum.Stop)),
		zap.Int("pages", sum.Pages),
		zap.Int("total", sum.Total))
	return sum, nil
}
