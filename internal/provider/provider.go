// Package provider defines the upstream data services a session consumes
// and the shared plumbing their HTTP clients are built on.
package provider

import (
	"context"

	"solana-wallet-lab/internal/domain"
)

// TransferEntry is one token movement reported by the transfer-history service.
type TransferEntry struct {
	Signature   string
	Timestamp   int64 // unix seconds
	Token       string
	Amount      float64 // raw base units
	Source      string
	Destination string
}

// TransferSource is a paginated transfer-history query by wallet.
type TransferSource interface {
	// ListSignatures returns one page (1-based) of transaction signatures for wallet.
	ListSignatures(ctx context.Context, wallet string, page, limit int) ([]string, error)

	// GetTransfers resolves the token transfer entries of the given transactions.
	GetTransfers(ctx context.Context, signatures []string) ([]TransferEntry, error)
}

// MetadataSource is a batched token-metadata query.
type MetadataSource interface {
	// FetchMetadata resolves a batch of mints. Mints missing from the
	// returned map were not resolved. An error fails the whole batch.
	FetchMetadata(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error)
}

// PriceSource is a windowed historical-price query.
type PriceSource interface {
	// PriceHistory returns samples for token in [from, to] (unix seconds),
	// in the order the service returned them.
	PriceHistory(ctx context.Context, token string, from, to int64) ([]domain.PricePoint, error)
}
