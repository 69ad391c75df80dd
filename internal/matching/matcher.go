// Package matching pairs BUY and SELL transfers into trades.
package matching

import (
	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/normalization"
)

// UnknownSymbol labels trades whose rows carry no symbol.
const UnknownSymbol = "UNKNOWN"

// Result is the output of one matching pass.
type Result struct {
	Trades        []domain.Trade
	UnmatchedBuys int // BUYs still queued at the end
	DroppedSells  int // SELLs with no queued BUY of the same token
}

// Match pairs every SELL with the oldest unmatched BUY of the same token.
// Rows are processed by (timestamp, row_id). A SELL arriving while its
// token queue is empty is dropped and never revisited.
func Match(rows []domain.EnrichedTransfer) Result {
	ordered := make([]domain.EnrichedTransfer, len(rows))
	copy(ordered, rows)
	normalization.SortRows(ordered)

	queues := make(map[string][]domain.EnrichedTransfer)
	var res Result
	for _, row := range ordered {
		switch row.Action {
		case domain.ActionBuy:
			queues[row.Token] = append(queues[row.Token], row)
		case domain.ActionSell:
			q := queues[row.Token]
			if len(q) == 0 {
				res.DroppedSells++
				continue
			}
			buy := q[0]
			queues[row.Token] = q[1:]
			res.Trades = append(res.Trades, newTrade(buy, row))
		}
	}

	for _, q := range queues {
		res.UnmatchedBuys += len(q)
	}
	return res
}

func newTrade(buy, sell domain.EnrichedTransfer) domain.Trade {
	symbol := sell.SymbolOr(buy.SymbolOr(UnknownSymbol))
	return domain.Trade{
		Token:        sell.Token,
		Symbol:       symbol,
		Buy:          buy,
		Sell:         sell,
		ProfitUSD:    sell.USDAmount() - buy.USDAmount(),
		DurationSecs: sell.Timestamp - buy.Timestamp,
	}
}
