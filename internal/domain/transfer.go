package domain

import "fmt"

// Action classifies a transfer relative to the evaluated wallet.
type Action string

const (
	ActionBuy  Action = "BUY"  // wallet is the destination
	ActionSell Action = "SELL" // wallet is the source
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// ParseAction converts a stored action string into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Transfer is a raw token movement ingested for a wallet.
// Corresponds to the transfers table of a session ledger.
type Transfer struct {
	Signature   string  // transaction signature
	Timestamp   int64   // unix seconds
	Token       string  // token mint address
	Amount      float64 // raw amount in base units
	Action      Action  // BUY or SELL
	Source      string  // sending address
	Destination string  // receiving address
}

// EnrichedTransfer is a ledger row with its enrichment columns.
// Enrichment fields are nil until the corresponding stage resolves them.
type EnrichedTransfer struct {
	Transfer

	RowID        int64    // ledger row id
	Symbol       *string  // token symbol (nullable)
	Name         *string  // token name (nullable)
	Decimals     *int     // token decimals (nullable)
	AmountHuman  *float64 // Amount / 10^Decimals
	PriceUSD     *float64 // historical USD price near Timestamp
	AmountUSD    *float64 // AmountHuman * PriceUSD
	MarketCapUSD *float64 // PriceUSD * assumed total supply
}

// USDAmount returns AmountUSD, or 0 when the row was never priced.
func (t *EnrichedTransfer) USDAmount() float64 {
	if t.AmountUSD == nil {
		return 0
	}
	return *t.AmountUSD
}

// SymbolOr returns the token symbol or fallback when unresolved.
func (t *EnrichedTransfer) SymbolOr(fallback string) string {
	if t.Symbol == nil || *t.Symbol == "" {
		return fallback
	}
	return *t.Symbol
}
