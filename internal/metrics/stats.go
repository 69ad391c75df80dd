// Package metrics computes profitability statistics over matched trades.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"solana-wallet-lab/internal/domain"
)

// topTrades is the length of the best and worst trade lists.
const topTrades = 3

// DateLayout is the calendar date format of start/end dates.
const DateLayout = "2006-01-02"

// Stats is the aggregate of a trade set.
type Stats struct {
	Trades         int
	TotalProfitUSD float64
	WinRate        float64
	AverageHold    string
	MedianHold     string
	Correlation    *float64 // nil when undefined
	BestTrades     []domain.TradeSummary
	WorstTrades    []domain.TradeSummary
	BestToken      *domain.TokenProfit // nil unless more than two symbols traded
	WorstToken     *domain.TokenProfit
}

// Compute calculates all statistics from a slice of trades.
// Profits are rounded to 4 decimals per trade before aggregation.
// Never fails: undefined values are left nil.
func Compute(trades []domain.Trade) Stats {
	n := len(trades)
	profits := make([]float64, n)
	holds := make([]float64, n)
	var total float64
	for i := range trades {
		profits[i] = round4(trades[i].ProfitUSD)
		holds[i] = float64(trades[i].DurationSecs)
		total += profits[i]
	}

	worst, best := computeBestWorst(trades, profits)
	bestToken, worstToken := computeTokenExtremes(trades, profits)

	return Stats{
		Trades:         n,
		TotalProfitUSD: round4(total),
		WinRate:        computeWinRate(profits),
		AverageHold:    HumanDuration(computeMean(holds)),
		MedianHold:     HumanDuration(computeMedian(holds)),
		Correlation:    computeMarketCapCorrelation(trades, profits),
		BestTrades:     best,
		WorstTrades:    worst,
		BestToken:      bestToken,
		WorstToken:     worstToken,
	}
}

// ApplyTo copies the statistics onto a session result.
func (s Stats) ApplyTo(r *domain.SessionResult) {
	r.TotalProfitUSD = s.TotalProfitUSD
	r.WinRate = s.WinRate
	r.AverageHoldTimeHuman = s.AverageHold
	r.MedianHoldTimeHuman = s.MedianHold
	r.Correlation = s.Correlation
	r.BestTrades = s.BestTrades
	r.WorstTrades = s.WorstTrades
	r.BestToken = s.BestToken
	r.WorstToken = s.WorstToken
}

// DateRange formats the first and last transaction timestamps as UTC dates.
func DateRange(first, last int64) (start, end string) {
	return time.Unix(first, 0).UTC().Format(DateLayout), time.Unix(last, 0).UTC().Format(DateLayout)
}

// HumanDuration renders whole seconds as "<h>h <m>m <s>s". Fractions are truncated.
func HumanDuration(seconds float64) string {
	total := int64(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// computeMean calculates the arithmetic mean, 0 for an empty slice.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeMedian returns the middle value, averaging the two middle values
// for an even count. Input is not modified.
func computeMedian(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// computeWinRate calculates the fraction of positive profits.
func computeWinRate(profits []float64) float64 {
	if len(profits) == 0 {
		return 0
	}
	wins := 0
	for _, p := range profits {
		if p > 0 {
			wins++
		}
	}
	return round4(float64(wins) / float64(len(profits)))
}

// computeMarketCapCorrelation correlates buy-side market cap with profit
// over trades whose entry was priced.
func computeMarketCapCorrelation(trades []domain.Trade, profits []float64) *float64 {
	var caps, ps []float64
	for i := range trades {
		mc := trades[i].BuyMarketCap()
		if mc == nil {
			continue
		}
		caps = append(caps, *mc)
		ps = append(ps, profits[i])
	}
	if len(caps) < 2 {
		return nil
	}
	return pearson(caps, ps)
}

// pearson returns the correlation coefficient of x and y rounded to 4
// decimals, or nil when the denominator is zero.
func pearson(x, y []float64) *float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil
	}
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}
	fn := float64(n)
	num := fn*sumXY - sumX*sumY
	den := math.Sqrt((fn*sumX2 - sumX*sumX) * (fn*sumY2 - sumY*sumY))
	if den == 0 || math.IsNaN(den) {
		return nil
	}
	r := round4(num / den)
	return &r
}

// computeBestWorst picks up to three worst then three best trades from the
// profit-sorted list. Both scans share one seen-symbol set, so a symbol
// chosen as a worst trade never reappears among the best.
func computeBestWorst(trades []domain.Trade, profits []float64) (worst, best []domain.TradeSummary) {
	order := make([]int, len(trades))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return profits[order[a]] < profits[order[b]]
	})

	seen := make(map[string]bool)
	worst = []domain.TradeSummary{}
	for _, i := range order {
		if len(worst) == topTrades {
			break
		}
		if seen[trades[i].Symbol] {
			continue
		}
		seen[trades[i].Symbol] = true
		worst = append(worst, summarize(&trades[i], profits[i]))
	}

	best = []domain.TradeSummary{}
	for k := len(order) - 1; k >= 0; k-- {
		if len(best) == topTrades {
			break
		}
		i := order[k]
		if seen[trades[i].Symbol] {
			continue
		}
		seen[trades[i].Symbol] = true
		best = append(best, summarize(&trades[i], profits[i]))
	}
	return worst, best
}

func summarize(t *domain.Trade, profit float64) domain.TradeSummary {
	return domain.TradeSummary{
		Token:        t.Token,
		Symbol:       t.Symbol,
		ProfitUSD:    profit,
		DurationSecs: t.DurationSecs,
		TotalBuys:    1,
		TotalSells:   1,
	}
}

// computeTokenExtremes sums profit per symbol and returns the highest and
// lowest. Defined only when more than two symbols were traded; ties keep
// the symbol seen first.
func computeTokenExtremes(trades []domain.Trade, profits []float64) (best, worst *domain.TokenProfit) {
	var symbols []string
	sums := make(map[string]float64)
	for i := range trades {
		sym := trades[i].Symbol
		if _, ok := sums[sym]; !ok {
			symbols = append(symbols, sym)
		}
		sums[sym] += profits[i]
	}
	if len(symbols) <= 2 {
		return nil, nil
	}

	hi, lo := symbols[0], symbols[0]
	for _, sym := range symbols[1:] {
		if sums[sym] > sums[hi] {
			hi = sym
		}
		if sums[sym] < sums[lo] {
			lo = sym
		}
	}
	return &domain.TokenProfit{Symbol: hi, ProfitUSD: sums[hi]},
		&domain.TokenProfit{Symbol: lo, ProfitUSD: sums[lo]}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
