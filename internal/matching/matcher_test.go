package matching

import (
	"testing"

	"solana-wallet-lab/internal/domain"
)

func row(id int64, ts int64, token string, action domain.Action, usd *float64) domain.EnrichedTransfer {
	sym := "SYM-" + token
	return domain.EnrichedTransfer{
		Transfer:  domain.Transfer{Signature: "sig", Timestamp: ts, Token: token, Action: action},
		RowID:     id,
		Symbol:    &sym,
		AmountUSD: usd,
	}
}

func usd(v float64) *float64 { return &v }

func TestMatch_FIFOPairsOldestBuy(t *testing.T) {
	rows := []domain.EnrichedTransfer{
		row(1, 100, "A", domain.ActionBuy, usd(10)),
		row(2, 200, "A", domain.ActionBuy, usd(20)),
		row(3, 300, "A", domain.ActionSell, usd(15)),
		row(4, 400, "A", domain.ActionSell, usd(25)),
	}

	res := Match(rows)

	if len(res.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(res.Trades))
	}
	if res.Trades[0].Buy.RowID != 1 || res.Trades[0].Sell.RowID != 3 {
		t.Errorf("first trade paired rows %d/%d, expected 1/3", res.Trades[0].Buy.RowID, res.Trades[0].Sell.RowID)
	}
	if res.Trades[1].Buy.RowID != 2 || res.Trades[1].Sell.RowID != 4 {
		t.Errorf("second trade paired rows %d/%d, expected 2/4", res.Trades[1].Buy.RowID, res.Trades[1].Sell.RowID)
	}
	for i, tr := range res.Trades {
		if tr.ProfitUSD != 5 {
			t.Errorf("trade %d: expected profit 5, got %f", i, tr.ProfitUSD)
		}
		if tr.DurationSecs != 200 {
			t.Errorf("trade %d: expected duration 200, got %d", i, tr.DurationSecs)
		}
	}
}

func TestMatch_SellBeforeBuyIsDropped(t *testing.T) {
	rows := []domain.EnrichedTransfer{
		row(1, 100, "A", domain.ActionSell, usd(50)),
		row(2, 200, "A", domain.ActionBuy, usd(10)),
	}

	res := Match(rows)

	if len(res.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(res.Trades))
	}
	if res.DroppedSells != 1 {
		t.Errorf("expected 1 dropped sell, got %d", res.DroppedSells)
	}
	if res.UnmatchedBuys != 1 {
		t.Errorf("expected 1 unmatched buy, got %d", res.UnmatchedBuys)
	}
}

func TestMatch_TokensNeverCross(t *testing.T) {
	rows := []domain.EnrichedTransfer{
		row(1, 100, "A", domain.ActionBuy, usd(10)),
		row(2, 200, "B", domain.ActionSell, usd(30)),
	}

	res := Match(rows)

	if len(res.Trades) != 0 {
		t.Errorf("expected no cross-token trade, got %d", len(res.Trades))
	}
}

func TestMatch_UnpricedCountsAsZero(t *testing.T) {
	rows := []domain.EnrichedTransfer{
		row(1, 100, "A", domain.ActionBuy, nil),
		row(2, 160, "A", domain.ActionSell, usd(7.5)),
	}

	res := Match(rows)

	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	if res.Trades[0].ProfitUSD != 7.5 {
		t.Errorf("expected profit 7.5, got %f", res.Trades[0].ProfitUSD)
	}
}

func TestMatch_OrdersByTimestampThenRowID(t *testing.T) {
	rows := []domain.EnrichedTransfer{
		row(3, 300, "A", domain.ActionSell, usd(1)),
		row(2, 100, "A", domain.ActionBuy, usd(2)),
		row(1, 100, "A", domain.ActionBuy, usd(3)),
	}

	res := Match(rows)

	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	if res.Trades[0].Buy.RowID != 1 {
		t.Errorf("expected buy row 1 to be matched first, got %d", res.Trades[0].Buy.RowID)
	}
	// Input slice is left untouched.
	if rows[0].RowID != 3 {
		t.Errorf("input reordered")
	}
}

func TestMatch_SymbolFallback(t *testing.T) {
	buy := row(1, 100, "A", domain.ActionBuy, usd(1))
	sell := row(2, 200, "A", domain.ActionSell, usd(2))
	buy.Symbol = nil
	sell.Symbol = nil

	res := Match([]domain.EnrichedTransfer{buy, sell})

	if res.Trades[0].Symbol != UnknownSymbol {
		t.Errorf("expected symbol %q, got %q", UnknownSymbol, res.Trades[0].Symbol)
	}
}
