package enrichment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/provider"
	"solana-wallet-lab/internal/storage"
)

// MetadataEnricher resolves symbol, name and decimals for every token in a
// ledger through batched lookups.
type MetadataEnricher struct {
	source     provider.MetadataSource
	batchSize  int
	batchDelay time.Duration
	sleep      func(context.Context, time.Duration) error
	logger     *zap.Logger
}

// MetadataEnricherOptions contains configuration for creating a MetadataEnricher.
type MetadataEnricherOptions struct {
	Source     provider.MetadataSource
	BatchSize  int           // Default: 20 mints per lookup
	BatchDelay time.Duration // pause between lookups
	Sleep      func(context.Context, time.Duration) error
	Logger     *zap.Logger
}

// NewMetadataEnricher creates a new MetadataEnricher.
func NewMetadataEnricher(opts MetadataEnricherOptions) *MetadataEnricher {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataEnricher{
		source:     opts.Source,
		batchSize:  batchSize,
		batchDelay: opts.BatchDelay,
		sleep:      sleep,
		logger:     logger,
	}
}

// Enrich writes metadata onto every row of every distinct token.
// Unresolved tokens get UNKNOWN_n metadata with zero decimals; a failed
// lookup leaves its whole batch unenriched. Only ledger errors and
// cancellation are returned.
func (e *MetadataEnricher) Enrich(ctx context.Context, ledger storage.Ledger) (*Report, error) {
	report := newReport(StageMetadata)

	tokens, err := ledger.DistinctTokens(ctx)
	if err != nil {
		return report, fmt.Errorf("list tokens: %w", err)
	}

	unknown := 0
	for i := 0; i < len(tokens); i += e.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if i > 0 && e.batchDelay > 0 {
			if err := e.sleep(ctx, e.batchDelay); err != nil {
				return report, err
			}
		}

		batch := tokens[i:min(i+e.batchSize, len(tokens))]

		start := time.Now()
		resolved, err := e.source.FetchMetadata(ctx, batch)
		observability.RecordProviderCall("metadata", "fetch_metadata", time.Since(start).Seconds(), err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			e.logger.Warn("metadata-batch-failed", zap.Int("batch", i/e.batchSize), zap.Int("tokens", len(batch)), zap.Error(err))
			report.add(fmt.Sprintf("batch-%d", i/e.batchSize), OutcomeFailed, 0, err)
			continue
		}

		for _, mint := range batch {
			meta, ok := resolved[mint]
			outcome := OutcomeResolved
			if !ok || meta.Decimals < 0 {
				unknown++
				meta = domain.UnknownToken(mint, unknown)
				outcome = OutcomeSkipped
			}
			meta.Address = mint

			rows, err := ledger.ApplyMetadata(ctx, meta)
			if err != nil {
				return report, fmt.Errorf("apply metadata for %s: %w", mint, err)
			}
			report.add(mint, outcome, rows, nil)
		}
	}

	report.record()
	e.logger.Info("metadata-enrichment-done",
		zap.Int("tokens", len(tokens)),
		zap.Int("resolved", report.Count(OutcomeResolved)),
		zap.Int("unknown", report.Count(OutcomeSkipped)),
		zap.Int("failed_batches", report.Count(OutcomeFailed)),
		zap.Int64("rows_updated", report.RowsUpdated()))
	return report, nil
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
