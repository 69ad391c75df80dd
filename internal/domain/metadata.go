package domain

import (
	"fmt"
	"strings"
)

// UnknownSymbolPrefix marks synthetic symbols assigned to unresolved tokens.
const UnknownSymbolPrefix = "UNKNOWN_"

// TokenMetadata is the resolved identity of a token mint.
type TokenMetadata struct {
	Address  string // token mint address
	Symbol   string // ticker symbol
	Name     string // display name
	Decimals int    // base-unit exponent
}

// UnknownToken builds the placeholder metadata for the n-th unresolved token.
func UnknownToken(address string, n int) TokenMetadata {
	label := fmt.Sprintf("%s%d", UnknownSymbolPrefix, n)
	return TokenMetadata{
		Address:  address,
		Symbol:   label,
		Name:     label,
		Decimals: 0,
	}
}

// IsSyntheticSymbol reports whether symbol was assigned by UnknownToken.
func IsSyntheticSymbol(symbol string) bool {
	return strings.HasPrefix(symbol, UnknownSymbolPrefix)
}

// PricePoint is a single historical price sample.
type PricePoint struct {
	Timestamp int64   // unix seconds
	Value     float64 // USD price
}
