package normalization

import (
	"sort"

	"solana-wallet-lab/internal/domain"
)

// SortRows orders ledger rows by (timestamp ASC, row_id ASC).
// Row ids follow insertion order, so equal timestamps keep ingestion order.
func SortRows(rows []domain.EnrichedTransfer) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRows(&rows[i], &rows[j]) < 0
	})
}

// compareRows returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareRows(a, b *domain.EnrichedTransfer) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.RowID != b.RowID {
		if a.RowID < b.RowID {
			return -1
		}
		return 1
	}
	return 0
}
