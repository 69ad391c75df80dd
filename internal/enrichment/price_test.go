package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-lab/internal/domain"
)

type windowCall struct {
	token    string
	from, to int64
}

type scriptedPrices struct {
	points map[string][]domain.PricePoint
	fail   map[string]bool
	calls  []windowCall
}

func (s *scriptedPrices) PriceHistory(_ context.Context, token string, from, to int64) ([]domain.PricePoint, error) {
	s.calls = append(s.calls, windowCall{token: token, from: from, to: to})
	if s.fail[token] {
		return nil, errors.New("upstream timeout")
	}
	return s.points[token], nil
}

func TestRoundToBucket(t *testing.T) {
	tests := []struct {
		ts, want int64
	}{
		{1000, 1000},
		{1004, 1000},
		{1005, 1010},
		{1006, 1010},
		{1014, 1010},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundToBucket(tt.ts, 10), "ts=%d", tt.ts)
	}
}

func TestClosest(t *testing.T) {
	points := []domain.PricePoint{
		{Timestamp: 940, Value: 1},
		{Timestamp: 1060, Value: 2}, // same distance as 940, loses the tie
		{Timestamp: 1030, Value: 3},
	}

	p, ok := Closest(points, 1000)
	require.True(t, ok)
	assert.Equal(t, 3.0, p.Value)

	p, ok = Closest(points[:2], 1000)
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Value, "first sample wins ties")

	_, ok = Closest(nil, 1000)
	assert.False(t, ok)
}

func TestPriceEnricher_GroupsAndPrices(t *testing.T) {
	ctx := context.Background()
	ledger := seedLedger(t,
		transfer("s1", 1001, "MintA", 2_000_000, domain.ActionBuy),
		transfer("s2", 1003, "MintA", 4_000_000, domain.ActionSell),
		transfer("s3", 1001, "MintB", 5, domain.ActionBuy),
		transfer("s4", 2000, "MintA", 1_000_000, domain.ActionBuy),
		transfer("s5", 3000, "MintC", 1, domain.ActionBuy),
	)
	meta := map[string]domain.TokenMetadata{
		"MintA": {Address: "MintA", Symbol: "AAA", Name: "Alpha", Decimals: 6},
		"MintB": {Address: "MintB", Symbol: "BBB", Name: "Beta", Decimals: 0},
	}
	for _, m := range meta {
		_, err := ledger.ApplyMetadata(ctx, m)
		require.NoError(t, err)
	}

	src := &scriptedPrices{
		points: map[string][]domain.PricePoint{
			"MintA": {{Timestamp: 990, Value: 0.5}, {Timestamp: 1005, Value: 0.6}},
		},
		fail: map[string]bool{"MintB": true},
	}

	var slept int
	enricher := NewPriceEnricher(PriceEnricherOptions{
		Source:             src,
		Bucket:             10 * time.Second,
		Window:             5 * time.Minute,
		CallDelay:          time.Second,
		AssumedTotalSupply: 1_000_000_000,
		Sleep: func(context.Context, time.Duration) error {
			slept++
			return nil
		},
	})

	report, err := enricher.Enrich(ctx, ledger)
	require.NoError(t, err)

	// MintC has no decimals and is never looked up.
	require.Len(t, src.calls, 3)
	assert.Equal(t, windowCall{token: "MintA", from: 700, to: 1300}, src.calls[0])
	assert.Equal(t, "MintB", src.calls[1].token)
	assert.Equal(t, windowCall{token: "MintA", from: 1700, to: 2300}, src.calls[2])
	assert.Equal(t, 2, slept)

	assert.Equal(t, 2, report.Count(OutcomeResolved))
	assert.Equal(t, 1, report.Count(OutcomeFailed))
	assert.Equal(t, int64(3), report.RowsUpdated())

	rows, err := ledger.Load(ctx)
	require.NoError(t, err)
	bySig := map[string]domain.EnrichedTransfer{}
	for _, r := range rows {
		bySig[r.Signature] = r
	}

	s1 := bySig["s1"]
	require.NotNil(t, s1.PriceUSD)
	assert.Equal(t, 0.6, *s1.PriceUSD)
	assert.InDelta(t, 1.2, *s1.AmountUSD, 1e-9)
	assert.InDelta(t, 600_000_000, *s1.MarketCapUSD, 1e-3)
	assert.InDelta(t, 2.4, *bySig["s2"].AmountUSD, 1e-9)

	// 2000 is closest to the 1005 sample in its window.
	assert.Equal(t, 0.6, *bySig["s4"].PriceUSD)

	assert.Nil(t, bySig["s3"].PriceUSD, "failed lookups leave rows unpriced")
	assert.Nil(t, bySig["s5"].PriceUSD)
}

func TestPriceEnricher_EmptyHistorySkipped(t *testing.T) {
	ctx := context.Background()
	ledger := seedLedger(t, transfer("s1", 1000, "MintA", 1, domain.ActionBuy))
	_, err := ledger.ApplyMetadata(ctx, domain.TokenMetadata{Address: "MintA", Symbol: "AAA", Name: "A", Decimals: 0})
	require.NoError(t, err)

	report, err := NewPriceEnricher(PriceEnricherOptions{Source: &scriptedPrices{}}).Enrich(ctx, ledger)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(OutcomeSkipped))

	rows, _ := ledger.Load(ctx)
	assert.Nil(t, rows[0].PriceUSD)
}

func TestPriceEnricher_Cancelled(t *testing.T) {
	ctx := context.Background()
	ledger := seedLedger(t, transfer("s1", 1000, "MintA", 1, domain.ActionBuy))
	_, err := ledger.ApplyMetadata(ctx, domain.TokenMetadata{Address: "MintA", Symbol: "AAA", Name: "A", Decimals: 0})
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()

	_, err = NewPriceEnricher(PriceEnricherOptions{Source: &scriptedPrices{}}).Enrich(cctx, ledger)
	assert.ErrorIs(t, err, context.Canceled)
}
