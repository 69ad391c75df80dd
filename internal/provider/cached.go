package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// CachedPriceSource serves price windows from a shared sample cache and
// falls through to the upstream source on a miss. Cache failures are
// logged and never fail the lookup.
type CachedPriceSource struct {
	source PriceSource
	cache  storage.PriceSampleStore
	logger *zap.Logger
}

// NewCachedPriceSource creates a new CachedPriceSource.
func NewCachedPriceSource(source PriceSource, cache storage.PriceSampleStore, logger *zap.Logger) *CachedPriceSource {
	return &CachedPriceSource{source: source, cache: cache, logger: logger}
}

// Compile-time interface check.
var _ PriceSource = (*CachedPriceSource)(nil)

// PriceHistory implements PriceSource.
func (s *CachedPriceSource) PriceHistory(ctx context.Context, token string, from, to int64) ([]domain.PricePoint, error) {
	w := storage.PriceWindow{Token: token, From: from, To: to}

	points, err := s.cache.GetWindow(ctx, w)
	switch {
	case err == nil:
		return points, nil
	case errors.Is(err, storage.ErrNotFound):
	default:
		s.logger.Warn("price-cache-read-failed", zap.String("token", token), zap.Error(err))
	}

	points, err = s.source.PriceHistory(ctx, token, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.cache.PutWindow(ctx, w, points); err != nil {
		s.logger.Warn("price-cache-write-failed", zap.String("token", token), zap.Error(err))
	}
	return points, nil
}
