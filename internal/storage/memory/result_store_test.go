package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

func TestResultStore_LatestPerWallet(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	first := domain.NewSessionResult("s1", "W", now)
	first.TotalProfitUSD = 1
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	second := domain.NewSessionResult("s2", "W", now.Add(time.Hour))
	second.TotalProfitUSD = 2
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetByWallet(ctx, "W")
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if got.SessionID != "s2" || got.TotalProfitUSD != 2 {
		t.Errorf("GetByWallet: got session %s profit %v", got.SessionID, got.TotalProfitUSD)
	}

	// The overwritten session no longer resolves.
	if _, err := store.GetBySession(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBySession(s1): expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetBySession(ctx, "s2"); err != nil {
		t.Errorf("GetBySession(s2) failed: %v", err)
	}
}

func TestResultStore_InvalidAndMissing(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	if err := store.Put(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Put(nil): expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.GetByWallet(ctx, "W"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByWallet: expected ErrNotFound, got %v", err)
	}
}

func TestPriceSampleStore_Window(t *testing.T) {
	store := NewPriceSampleStore()
	ctx := context.Background()
	w := storage.PriceWindow{Token: "MintA", From: 100, To: 700}

	if _, err := store.GetWindow(ctx, w); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetWindow before Put: expected ErrNotFound, got %v", err)
	}
	if err := store.PutWindow(ctx, w, nil); err != nil {
		t.Fatalf("PutWindow(empty) failed: %v", err)
	}
	if _, err := store.GetWindow(ctx, w); !errors.Is(err, storage.ErrNotFound) {
		t.Error("empty sample sets must not be cached")
	}

	points := []domain.PricePoint{{Timestamp: 400, Value: 1.5}}
	if err := store.PutWindow(ctx, w, points); err != nil {
		t.Fatalf("PutWindow failed: %v", err)
	}
	got, err := store.GetWindow(ctx, w)
	if err != nil {
		t.Fatalf("GetWindow failed: %v", err)
	}
	if len(got) != 1 || got[0].Value != 1.5 {
		t.Errorf("GetWindow: got %+v", got)
	}

	if err := store.PutWindow(ctx, storage.PriceWindow{Token: "MintA", From: 9, To: 1}, points); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("inverted window: expected ErrInvalidInput, got %v", err)
	}
}
