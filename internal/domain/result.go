package domain

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// TradeSummary is a trade as it appears in the best/worst lists.
type TradeSummary struct {
	Token        string  `json:"token"`
	Symbol       string  `json:"symbol"`
	ProfitUSD    float64 `json:"profit_usd"`
	DurationSecs int64   `json:"duration_secs"`
	TotalBuys    int     `json:"total_buys"`
	TotalSells   int     `json:"total_sells"`
}

// TokenProfit is a symbol with its summed profit.
// Serialized as a two-element array: ["SYM", 12.5].
type TokenProfit struct {
	Symbol    string
	ProfitUSD float64
}

// MarshalJSON encodes the pair as [symbol, profit].
func (p TokenProfit) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Symbol, p.ProfitUSD})
}

// UnmarshalJSON decodes a [symbol, profit] pair.
func (p *TokenProfit) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("token profit: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Symbol); err != nil {
		return fmt.Errorf("token profit symbol: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.ProfitUSD); err != nil {
		return fmt.Errorf("token profit value: %w", err)
	}
	return nil
}

// SessionResult is the persisted summary of one session, keyed by wallet.
type SessionResult struct {
	SessionID            string         `json:"session_id"`
	WalletAddress        string         `json:"wallet_address"`
	TimestampStarted     time.Time      `json:"timestamp_started"`
	TimestampEnded       time.Time      `json:"timestamp_ended"`
	TotalProfitUSD       float64        `json:"total_profit_usd"`
	WinRate              float64        `json:"win_rate"`
	AverageHoldTimeHuman string         `json:"average_hold_time_human"`
	MedianHoldTimeHuman  string         `json:"median_hold_time_human"`
	Correlation          *float64       `json:"profit_vs_market_cap_correlation"`
	BestTrades           []TradeSummary `json:"best_trades"`
	WorstTrades          []TradeSummary `json:"worst_trades"`
	BestToken            *TokenProfit   `json:"best_token_by_profit"`
	WorstToken           *TokenProfit   `json:"worst_token_by_profit"`
	StartDate            *string        `json:"start_date"`
	EndDate              *string        `json:"end_date"`
	Errors               []string       `json:"errors"`
}

// NewSessionResult returns a result with empty, non-nil lists.
func NewSessionResult(sessionID, wallet string, started time.Time) *SessionResult {
	return &SessionResult{
		SessionID:        sessionID,
		WalletAddress:    wallet,
		TimestampStarted: started.UTC(),
		BestTrades:       []TradeSummary{},
		WorstTrades:      []TradeSummary{},
		Errors:           []string{},
	}
}

// AddError appends a failure detail to the result.
func (r *SessionResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// EncodeResult serializes a result to its persisted record.
func EncodeResult(r *SessionResult) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("encode result: nil result")
	}
	out := *r
	out.TimestampStarted = r.TimestampStarted.UTC()
	out.TimestampEnded = r.TimestampEnded.UTC()
	if out.BestTrades == nil {
		out.BestTrades = []TradeSummary{}
	}
	if out.WorstTrades == nil {
		out.WorstTrades = []TradeSummary{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

// DecodeResult parses a persisted result record.
func DecodeResult(data []byte) (*SessionResult, error) {
	var r SessionResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if r.BestTrades == nil {
		r.BestTrades = []TradeSummary{}
	}
	if r.WorstTrades == nil {
		r.WorstTrades = []TradeSummary{}
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	return &r, nil
}
