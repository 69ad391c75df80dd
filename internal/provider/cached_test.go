package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
	"solana-wallet-lab/internal/storage/memory"
)

type countingPrices struct {
	points []domain.PricePoint
	err    error
	calls  int
}

func (c *countingPrices) PriceHistory(context.Context, string, int64, int64) ([]domain.PricePoint, error) {
	c.calls++
	return c.points, c.err
}

func TestCachedPriceSource_HitAfterMiss(t *testing.T) {
	upstream := &countingPrices{points: []domain.PricePoint{{Timestamp: 100, Value: 1.5}}}
	cache := memory.NewPriceSampleStore()
	src := NewCachedPriceSource(upstream, cache, zap.NewNop())
	ctx := context.Background()

	first, err := src.PriceHistory(ctx, "mint", 0, 600)
	require.NoError(t, err)
	second, err := src.PriceHistory(ctx, "mint", 0, 600)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls)

	cached, err := cache.GetWindow(ctx, storage.PriceWindow{Token: "mint", From: 0, To: 600})
	require.NoError(t, err)
	assert.Equal(t, upstream.points, cached)
}

func TestCachedPriceSource_EmptyNotCached(t *testing.T) {
	upstream := &countingPrices{}
	src := NewCachedPriceSource(upstream, memory.NewPriceSampleStore(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		points, err := src.PriceHistory(ctx, "mint", 0, 600)
		require.NoError(t, err)
		assert.Empty(t, points)
	}
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedPriceSource_UpstreamError(t *testing.T) {
	upstream := &countingPrices{err: errors.New("boom")}
	src := NewCachedPriceSource(upstream, memory.NewPriceSampleStore(), zap.NewNop())

	_, err := src.PriceHistory(context.Background(), "mint", 0, 600)
	assert.Error(t, err)
}
