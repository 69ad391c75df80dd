package enrichment

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/provider"
	"solana-wallet-lab/internal/storage"
)

// DefaultAssumedTotalSupply is the fixed supply market caps are derived from.
const DefaultAssumedTotalSupply = 1_000_000_000

// PriceEnricher prices ledger rows from windowed price history, one
// lookup per (token, rounded timestamp) group.
type PriceEnricher struct {
	source    provider.PriceSource
	bucket    int64 // seconds
	window    int64 // seconds either side of the bucket
	callDelay time.Duration
	supply    float64
	sleep     func(context.Context, time.Duration) error
	logger    *zap.Logger
}

// PriceEnricherOptions contains configuration for creating a PriceEnricher.
type PriceEnricherOptions struct {
	Source             provider.PriceSource
	Bucket             time.Duration // Default: 10s
	Window             time.Duration // Default: 5m
	CallDelay          time.Duration // pause between lookups
	AssumedTotalSupply float64       // Default: 1e9
	Sleep              func(context.Context, time.Duration) error
	Logger             *zap.Logger
}

// NewPriceEnricher creates a new PriceEnricher.
func NewPriceEnricher(opts PriceEnricherOptions) *PriceEnricher {
	bucket := int64(opts.Bucket / time.Second)
	if bucket <= 0 {
		bucket = 10
	}
	window := int64(opts.Window / time.Second)
	if window <= 0 {
		window = 300
	}
	supply := opts.AssumedTotalSupply
	if supply <= 0 {
		supply = DefaultAssumedTotalSupply
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceEnricher{
		source:    opts.Source,
		bucket:    bucket,
		window:    window,
		callDelay: opts.CallDelay,
		supply:    supply,
		sleep:     sleep,
		logger:    logger,
	}
}

type priceGroup struct {
	token  string
	bucket int64
	rowIDs []int64
}

// Enrich prices every row that has decimals and no price yet.
// Failed or empty lookups leave their group unpriced. Only ledger errors
// and cancellation are returned.
func (e *PriceEnricher) Enrich(ctx context.Context, ledger storage.Ledger) (*Report, error) {
	report := newReport(StagePrice)

	rows, err := ledger.Unpriced(ctx)
	if err != nil {
		return report, fmt.Errorf("list unpriced rows: %w", err)
	}

	groups := e.group(rows)
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if i > 0 && e.callDelay > 0 {
			if err := e.sleep(ctx, e.callDelay); err != nil {
				return report, err
			}
		}

		key := fmt.Sprintf("%s@%d", g.token, g.bucket)

		start := time.Now()
		points, err := e.source.PriceHistory(ctx, g.token, g.bucket-e.window, g.bucket+e.window)
		observability.RecordProviderCall("prices", "price_history", time.Since(start).Seconds(), err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			e.logger.Debug("price-lookup-failed", zap.String("token", g.token), zap.Int64("bucket", g.bucket), zap.Error(err))
			report.add(key, OutcomeFailed, 0, err)
			continue
		}

		p, ok := Closest(points, g.bucket)
		if !ok {
			report.add(key, OutcomeSkipped, 0, nil)
			continue
		}

		if err := ledger.ApplyPrice(ctx, g.rowIDs, p.Value, p.Value*e.supply); err != nil {
			return report, fmt.Errorf("apply price for %s: %w", key, err)
		}
		report.add(key, OutcomeResolved, int64(len(g.rowIDs)), nil)
	}

	report.record()
	e.logger.Info("price-enrichment-done",
		zap.Int("rows", len(rows)),
		zap.Int("groups", len(groups)),
		zap.Int("priced", report.Count(OutcomeResolved)),
		zap.Int("empty", report.Count(OutcomeSkipped)),
		zap.Int("failed", report.Count(OutcomeFailed)))
	return report, nil
}

// group buckets rows by (token, rounded timestamp) in order of first appearance.
func (e *PriceEnricher) group(rows []domain.EnrichedTransfer) []*priceGroup {
	type key struct {
		token  string
		bucket int64
	}
	index := make(map[key]*priceGroup)
	var groups []*priceGroup

	for _, r := range rows {
		k := key{token: r.Token, bucket: RoundToBucket(r.Timestamp, e.bucket)}
		g, ok := index[k]
		if !ok {
			g = &priceGroup{token: k.token, bucket: k.bucket}
			index[k] = g
			groups = append(groups, g)
		}
		g.rowIDs = append(g.rowIDs, r.RowID)
	}
	return groups
}

// RoundToBucket rounds ts to the nearest multiple of width, halves away from zero.
func RoundToBucket(ts, width int64) int64 {
	return int64(math.Round(float64(ts)/float64(width))) * width
}

// Closest returns the sample nearest to target; the first sample wins ties.
func Closest(points []domain.PricePoint, target int64) (domain.PricePoint, bool) {
	if len(points) == 0 {
		return domain.PricePoint{}, false
	}
	best := points[0]
	bestDist := absDiff(best.Timestamp, target)
	for _, p := range points[1:] {
		if d := absDiff(p.Timestamp, target); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, true
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
