package domain

// Trade is a matched BUY/SELL pair for one token.
// Trades exist only after matching and are never mutated.
type Trade struct {
	Token        string           // token mint address
	Symbol       string           // resolved symbol of the pair
	Buy          EnrichedTransfer // entry leg
	Sell         EnrichedTransfer // exit leg
	ProfitUSD    float64          // sell.amount_usd - buy.amount_usd
	DurationSecs int64            // sell.timestamp - buy.timestamp
}

// BuyMarketCap returns the entry-side market cap, if priced.
func (t *Trade) BuyMarketCap() *float64 {
	return t.Buy.MarketCapUSD
}
