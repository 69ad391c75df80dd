package provider

import (
	"context"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
)

// MintResolver resolves a single mint, typically from chain state.
type MintResolver interface {
	Resolve(ctx context.Context, mint string) (domain.TokenMetadata, bool, error)
}

// FallbackMetadataSource asks primary first, then tries resolver for every
// mint primary left unresolved. A primary failure still fails the batch.
type FallbackMetadataSource struct {
	primary  MetadataSource
	resolver MintResolver
	logger   *zap.Logger
}

// NewFallbackMetadataSource creates a new FallbackMetadataSource.
func NewFallbackMetadataSource(primary MetadataSource, resolver MintResolver, logger *zap.Logger) *FallbackMetadataSource {
	return &FallbackMetadataSource{primary: primary, resolver: resolver, logger: logger}
}

// Compile-time interface check.
var _ MetadataSource = (*FallbackMetadataSource)(nil)

// FetchMetadata implements MetadataSource.
func (s *FallbackMetadataSource) FetchMetadata(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error) {
	resolved, err := s.primary.FetchMetadata(ctx, mints)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		resolved = make(map[string]domain.TokenMetadata, len(mints))
	}

	for _, mint := range mints {
		if _, ok := resolved[mint]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return resolved, nil
		}
		meta, ok, err := s.resolver.Resolve(ctx, mint)
		if err != nil {
			s.logger.Warn("onchain-metadata-failed", zap.String("mint", mint), zap.Error(err))
			continue
		}
		if ok {
			s.logger.Debug("onchain-metadata-resolved", zap.String("mint", mint), zap.String("symbol", meta.Symbol))
			resolved[mint] = meta
		}
	}
	return resolved, nil
}
