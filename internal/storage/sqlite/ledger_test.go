package sqlite

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

func openTestLedger(t *testing.T) (*LedgerFactory, storage.Ledger) {
	t.Helper()
	f := NewLedgerFactory(t.TempDir())
	l, err := f.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return f, l
}

func page(transfers ...domain.Transfer) []domain.Transfer { return transfers }

func TestLedger_CommitAndResume(t *testing.T) {
	ctx := context.Background()
	f := NewLedgerFactory(t.TempDir())

	l, err := f.Open(ctx, "sess-r")
	require.NoError(t, err)

	next, err := l.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, l.CommitPage(ctx, page(
		domain.Transfer{Signature: "a", Timestamp: 10, Token: "mintA", Amount: 100, Action: domain.ActionBuy, Destination: "w"},
		domain.Transfer{Signature: "b", Timestamp: 20, Token: "mintA", Amount: 50, Action: domain.ActionSell, Source: "w"},
	), 2))
	require.NoError(t, l.Close())

	// A restarted process resumes from the persisted page.
	reopened, err := f.Open(ctx, "sess-r")
	require.NoError(t, err)
	defer reopened.Close()

	next, err = reopened.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLedger_CommitPageIsAtomic(t *testing.T) {
	ctx := context.Background()
	_, l := openTestLedger(t)

	err := l.CommitPage(ctx, page(
		domain.Transfer{Signature: "ok", Timestamp: 1, Token: "m", Action: domain.ActionBuy},
		domain.Transfer{Signature: "bad", Timestamp: 2, Token: "m", Action: "TRANSFER"},
	), 2)
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	n, _ := l.Count(ctx)
	assert.Zero(t, n)
	next, _ := l.NextPage(ctx)
	assert.Equal(t, 1, next)
}

func TestLedger_Enrichment(t *testing.T) {
	ctx := context.Background()
	_, l := openTestLedger(t)

	require.NoError(t, l.CommitPage(ctx, page(
		domain.Transfer{Signature: "s1", Timestamp: 300, Token: "mintA", Amount: 2_000_000, Action: domain.ActionBuy},
		domain.Transfer{Signature: "s2", Timestamp: 100, Token: "mintB", Amount: 5, Action: domain.ActionSell},
		domain.Transfer{Signature: "s3", Timestamp: 200, Token: "mintA", Amount: 1_000_000, Action: domain.ActionSell},
	), 2))

	first, last, ok, err := l.TimeRange(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), first)
	assert.Equal(t, int64(300), last)

	tokens, err := l.DistinctTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mintA", "mintB"}, tokens)

	n, err := l.ApplyMetadata(ctx, domain.TokenMetadata{Address: "mintA", Symbol: "AAA", Name: "Token A", Decimals: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	unpriced, err := l.Unpriced(ctx)
	require.NoError(t, err)
	require.Len(t, unpriced, 2)
	assert.Equal(t, "s3", unpriced[0].Signature)
	require.NotNil(t, unpriced[0].AmountHuman)
	assert.InDelta(t, 1.0, *unpriced[0].AmountHuman, 1e-12)

	require.NoError(t, l.ApplyPrice(ctx, []int64{unpriced[0].RowID, unpriced[1].RowID}, 0.25, 0.25e9))

	rows, err := l.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "s2", rows[0].Signature)
	assert.Nil(t, rows[0].Decimals)
	assert.Nil(t, rows[0].PriceUSD)

	for _, r := range rows[1:] {
		require.NotNil(t, r.AmountUSD)
		assert.InDelta(t, *r.AmountHuman*0.25, *r.AmountUSD, 1e-9)
		assert.InDelta(t, 0.25e9, *r.MarketCapUSD, 1e-3)
		assert.Equal(t, "AAA", *r.Symbol)
	}

	remaining, err := l.Unpriced(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestLedger_Retain(t *testing.T) {
	ctx := context.Background()
	_, l := openTestLedger(t)

	require.NoError(t, l.CommitPage(ctx, page(
		domain.Transfer{Signature: "s1", Timestamp: 1, Token: "m", Action: domain.ActionBuy},
		domain.Transfer{Signature: "s2", Timestamp: 2, Token: "m", Action: domain.ActionSell},
		domain.Transfer{Signature: "s3", Timestamp: 3, Token: "m", Action: domain.ActionSell},
	), 2))

	rows, err := l.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Retain(ctx, []int64{rows[0].RowID, rows[2].RowID}))

	rows, err = l.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "s1", rows[0].Signature)
	assert.Equal(t, "s3", rows[1].Signature)
}

func TestLedgerFactory_Remove(t *testing.T) {
	ctx := context.Background()
	f, l := openTestLedger(t)

	require.NoError(t, l.CommitPage(ctx, nil, 3))
	require.NoError(t, l.Close())
	assert.True(t, f.Exists("sess-1"))

	require.NoError(t, f.Remove("sess-1"))
	_, err := os.Stat(f.Path("sess-1"))
	assert.True(t, os.IsNotExist(err))
	assert.False(t, f.Exists("sess-1"))

	// Removing again is a no-op.
	require.NoError(t, f.Remove("sess-1"))
}
