// Package raydium resolves token metadata through the Raydium mint API.
package raydium

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/provider"
)

// DefaultBaseURL is the public Raydium v3 endpoint.
const DefaultBaseURL = "https://api-v3.raydium.io"

// Client implements provider.MetadataSource.
type Client struct {
	http    *provider.Client
	baseURL string
}

// NewClient creates a new Client.
func NewClient(baseURL string, opts ...provider.ClientOption) *Client {
	return &Client{
		http:    provider.NewClient(opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Compile-time interface check.
var _ provider.MetadataSource = (*Client)(nil)

type mintIDsResponse struct {
	Success bool        `json:"success"`
	Data    []*mintInfo `json:"data"` // null for unknown mints
}

type mintInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// FetchMetadata implements provider.MetadataSource.
func (c *Client) FetchMetadata(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error) {
	out := make(map[string]domain.TokenMetadata, len(mints))
	if len(mints) == 0 {
		return out, nil
	}

	var resp mintIDsResponse
	err := c.http.SendAndParse(ctx, &provider.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/mint/ids",
		Query:  url.Values{"mints": {strings.Join(mints, ",")}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch mint ids: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("fetch mint ids: service reported failure")
	}

	for _, info := range resp.Data {
		if info == nil || info.Address == "" {
			continue
		}
		out[info.Address] = domain.TokenMetadata{
			Address:  info.Address,
			Symbol:   info.Symbol,
			Name:     info.Name,
			Decimals: info.Decimals,
		}
	}
	return out, nil
}
