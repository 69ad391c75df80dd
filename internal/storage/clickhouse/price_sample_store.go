package clickhouse

import (
	"context"
	"fmt"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/storage"
)

// PriceSampleStore implements storage.PriceSampleStore using ClickHouse.
// The table is a ReplacingMergeTree, so concurrent writers of the same
// window collapse to one copy; reads use FINAL.
type PriceSampleStore struct {
	conn *Conn
}

// NewPriceSampleStore creates a new PriceSampleStore.
func NewPriceSampleStore(conn *Conn) *PriceSampleStore {
	return &PriceSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

// GetWindow returns cached samples for the window in their original order.
func (s *PriceSampleStore) GetWindow(ctx context.Context, w storage.PriceWindow) ([]domain.PricePoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT ts, price_usd
		FROM price_samples FINAL
		WHERE token = ? AND window_from = ? AND window_to = ?
		ORDER BY seq ASC
	`, w.Token, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("query price window: %w", err)
	}
	defer rows.Close()

	points, err := scanPricePoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points, nil
}

// PutWindow caches a non-empty sample set.
func (s *PriceSampleStore) PutWindow(ctx context.Context, w storage.PriceWindow, points []domain.PricePoint) error {
	if w.Token == "" || w.From > w.To {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (token, window_from, window_to, seq, ts, price_usd)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, p := range points {
		if err := batch.Append(w.Token, w.From, w.To, uint32(i), p.Timestamp, p.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func scanPricePoints(rows chRows) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, fmt.Errorf("scan price sample: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price samples: %w", err)
	}
	return points, nil
}
