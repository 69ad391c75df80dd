package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

func TestPriceSampleStore_PutAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSampleStore(conn)

	w := storage.PriceWindow{Token: "mintA", From: 1_700_000_000, To: 1_700_000_600}

	_, err := store.GetWindow(ctx, w)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	points := []domain.PricePoint{
		{Timestamp: 1_700_000_400, Value: 0.3},
		{Timestamp: 1_700_000_100, Value: 0.1},
		{Timestamp: 1_700_000_300, Value: 0.2},
	}
	require.NoError(t, store.PutWindow(ctx, w, points))
	// A second writer of the same window collapses into the first.
	require.NoError(t, store.PutWindow(ctx, w, points))

	got, err := store.GetWindow(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, points, got)

	other := storage.PriceWindow{Token: "mintA", From: 1_700_000_010, To: 1_700_000_610}
	_, err = store.GetWindow(ctx, other)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPriceSampleStore_EmptyNotCached(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSampleStore(conn)

	w := storage.PriceWindow{Token: "mintB", From: 10, To: 20}
	require.NoError(t, store.PutWindow(ctx, w, nil))

	_, err := store.GetWindow(ctx, w)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.PutWindow(ctx, storage.PriceWindow{Token: "", From: 1, To: 2}, nil), storage.ErrInvalidInput)
}

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://user:pw@ch.local/lab")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch.local:9000"}, opts.Addr)
	assert.Equal(t, "user", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "lab", opts.Auth.Database)

	_, err = parseDSN("clickhouse:///nohost")
	assert.Error(t, err)
}
