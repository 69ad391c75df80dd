package ingestion

import (
	"errors"
	"sort"

	"solana-wallet-lab/internal/domain"
)

// ErrInvalidOrdering is returned when transfers are not properly ordered.
var ErrInvalidOrdering = errors.New("transfers are not in deterministic order")

// SortTransfers orders a page by (timestamp ASC, signature ASC).
// Entries of the same transaction keep their reported order.
func SortTransfers(transfers []domain.Transfer) {
	sort.SliceStable(transfers, func(i, j int) bool {
		return compareTransfers(&transfers[i], &transfers[j]) < 0
	})
}

// ValidateTransferOrdering checks that transfers are sorted.
// Returns ErrInvalidOrdering if not.
func ValidateTransferOrdering(transfers []domain.Transfer) error {
	for i := 1; i < len(transfers); i++ {
		if compareTransfers(&transfers[i-1], &transfers[i]) > 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareTransfers returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, signature ASC)
func compareTransfers(a, b *domain.Transfer) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.Signature != b.Signature {
		if a.Signature < b.Signature {
			return -1
		}
		return 1
	}
	return 0
}
