package metrics

import (
	"math"
	"testing"
	"time"

	"solana-wallet-lab/internal/domain"
)

func trade(symbol string, profit float64, duration int64) domain.Trade {
	return domain.Trade{Token: "mint-" + symbol, Symbol: symbol, ProfitUSD: profit, DurationSecs: duration}
}

func withCap(t domain.Trade, mc float64) domain.Trade {
	t.Buy.MarketCapUSD = &mc
	return t
}

func TestComputeMedian_OddAndEven(t *testing.T) {
	if got := computeMedian([]float64{30, 10, 20}); got != 20 {
		t.Errorf("expected median 20, got %f", got)
	}
	if got := computeMedian([]float64{10, 20, 30, 40}); got != 25 {
		t.Errorf("expected median 25, got %f", got)
	}
	if got := computeMedian(nil); got != 0 {
		t.Errorf("expected median 0 for empty input, got %f", got)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0h 0m 0s"},
		{59.9, "0h 0m 59s"},
		{3661, "1h 1m 1s"},
		{90000, "25h 0m 0s"},
	}
	for _, tt := range tests {
		if got := HumanDuration(tt.seconds); got != tt.want {
			t.Errorf("HumanDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestCorrelation_PerfectlyIncreasing(t *testing.T) {
	trades := []domain.Trade{
		withCap(trade("A", 1, 10), 1000),
		withCap(trade("B", 2, 10), 2000),
		withCap(trade("C", 3, 10), 3000),
	}

	s := Compute(trades)

	if s.Correlation == nil {
		t.Fatal("expected correlation, got nil")
	}
	if math.Abs(*s.Correlation-1.0) > 1e-4 {
		t.Errorf("expected correlation 1.0, got %f", *s.Correlation)
	}
}

func TestCorrelation_Undefined(t *testing.T) {
	// Only one trade carries a market cap.
	s := Compute([]domain.Trade{withCap(trade("A", 1, 10), 1000), trade("B", 2, 10)})
	if s.Correlation != nil {
		t.Errorf("expected nil correlation for one sample, got %f", *s.Correlation)
	}

	// Constant market cap gives a zero denominator.
	s = Compute([]domain.Trade{withCap(trade("A", 1, 10), 5), withCap(trade("B", 2, 10), 5)})
	if s.Correlation != nil {
		t.Errorf("expected nil correlation for zero variance, got %f", *s.Correlation)
	}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)

	if s.TotalProfitUSD != 0 || s.WinRate != 0 {
		t.Errorf("expected zero totals, got profit %f win rate %f", s.TotalProfitUSD, s.WinRate)
	}
	if s.AverageHold != "0h 0m 0s" || s.MedianHold != "0h 0m 0s" {
		t.Errorf("unexpected hold times %q / %q", s.AverageHold, s.MedianHold)
	}
	if s.BestTrades == nil || s.WorstTrades == nil {
		t.Error("expected non-nil trade lists")
	}
	if s.BestToken != nil || s.WorstToken != nil || s.Correlation != nil {
		t.Error("expected undefined token extremes and correlation")
	}
}

func TestCompute_TotalsAndWinRate(t *testing.T) {
	trades := []domain.Trade{
		trade("A", 5.00004, 100),
		trade("B", -2, 200),
		trade("C", 0, 300),
	}

	s := Compute(trades)

	if s.TotalProfitUSD != 3 {
		t.Errorf("expected total profit 3, got %f", s.TotalProfitUSD)
	}
	if s.WinRate != 0.3333 {
		t.Errorf("expected win rate 0.3333, got %f", s.WinRate)
	}
	if s.AverageHold != "0h 3m 20s" {
		t.Errorf("expected average hold 0h 3m 20s, got %q", s.AverageHold)
	}
}

func TestBestWorst_SharedSeenSymbols(t *testing.T) {
	trades := []domain.Trade{
		trade("A", -10, 1),
		trade("A", 50, 1), // A already taken as a worst trade
		trade("B", -5, 1),
		trade("C", 1, 1),
		trade("D", 20, 1),
		trade("E", 30, 1),
		trade("F", 40, 1),
	}

	s := Compute(trades)

	wantWorst := []string{"A", "B", "C"}
	wantBest := []string{"F", "E", "D"}
	if len(s.WorstTrades) != 3 || len(s.BestTrades) != 3 {
		t.Fatalf("expected 3/3 trades, got %d/%d", len(s.WorstTrades), len(s.BestTrades))
	}
	for i, sym := range wantWorst {
		if s.WorstTrades[i].Symbol != sym {
			t.Errorf("worst[%d]: expected %s, got %s", i, sym, s.WorstTrades[i].Symbol)
		}
	}
	for i, sym := range wantBest {
		if s.BestTrades[i].Symbol != sym {
			t.Errorf("best[%d]: expected %s, got %s", i, sym, s.BestTrades[i].Symbol)
		}
	}
}

func TestBestWorst_FewSymbols(t *testing.T) {
	trades := []domain.Trade{
		trade("A", 1, 1),
		trade("A", 2, 1),
		trade("B", 3, 1),
	}

	s := Compute(trades)

	// Worst takes A then B; nothing left for best.
	if len(s.WorstTrades) != 2 {
		t.Errorf("expected 2 worst trades, got %d", len(s.WorstTrades))
	}
	if len(s.BestTrades) != 0 {
		t.Errorf("expected no best trades, got %d", len(s.BestTrades))
	}
}

func TestTokenExtremes(t *testing.T) {
	two := Compute([]domain.Trade{trade("A", 1, 1), trade("B", 2, 1)})
	if two.BestToken != nil {
		t.Error("expected no best token with two symbols")
	}

	s := Compute([]domain.Trade{
		trade("A", 1, 1),
		trade("B", 5, 1),
		trade("A", 6, 1),
		trade("C", -3, 1),
	})
	if s.BestToken == nil || s.BestToken.Symbol != "A" || s.BestToken.ProfitUSD != 7 {
		t.Errorf("expected best token A/7, got %+v", s.BestToken)
	}
	if s.WorstToken == nil || s.WorstToken.Symbol != "C" || s.WorstToken.ProfitUSD != -3 {
		t.Errorf("expected worst token C/-3, got %+v", s.WorstToken)
	}
}

func TestDateRange(t *testing.T) {
	start, end := DateRange(1700000000, 1700100000)
	if start != "2023-11-14" || end != "2023-11-16" {
		t.Errorf("unexpected range %s..%s", start, end)
	}
}

func TestApplyTo(t *testing.T) {
	r := domain.NewSessionResult("s1", "W", time.Time{})
	s := Compute([]domain.Trade{trade("A", 2, 60)})
	s.ApplyTo(r)

	if r.TotalProfitUSD != 2 || r.WinRate != 1 || r.AverageHoldTimeHuman != "0h 1m 0s" {
		t.Errorf("unexpected result %+v", r)
	}
	if len(r.WorstTrades) != 1 || r.WorstTrades[0].TotalBuys != 1 || r.WorstTrades[0].TotalSells != 1 {
		t.Errorf("unexpected worst trades %+v", r.WorstTrades)
	}
}
