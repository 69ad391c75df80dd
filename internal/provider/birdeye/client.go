// Package birdeye reads historical token prices from the Birdeye API.
package birdeye

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/provider"
)

// DefaultBaseURL is the public Birdeye endpoint.
const DefaultBaseURL = "https://public-api.birdeye.so"

// DefaultInterval is the candle width requested from history_price.
const DefaultInterval = "1m"

// Client implements provider.PriceSource.
type Client struct {
	http     *provider.Client
	baseURL  string
	apiKey   string
	interval string
}

// NewClient creates a client authenticating with apiKey.
func NewClient(baseURL, apiKey string, opts ...provider.ClientOption) *Client {
	return &Client{
		http:     provider.NewClient(opts...),
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		interval: DefaultInterval,
	}
}

// Compile-time interface check.
var _ provider.PriceSource = (*Client)(nil)

type historyPriceResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []struct {
			UnixTime int64   `json:"unixTime"`
			Value    float64 `json:"value"`
		} `json:"items"`
	} `json:"data"`
}

// PriceHistory implements provider.PriceSource.
func (c *Client) PriceHistory(ctx context.Context, token string, from, to int64) ([]domain.PricePoint, error) {
	var resp historyPriceResponse
	err := c.http.SendAndParse(ctx, &provider.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/defi/history_price",
		Headers: map[string]string{
			"X-API-KEY": c.apiKey,
			"x-chain":   "solana",
		},
		Query: url.Values{
			"address":      {token},
			"address_type": {"token"},
			"type":         {c.interval},
			"time_from":    {strconv.FormatInt(from, 10)},
			"time_to":      {strconv.FormatInt(to, 10)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("history price %s: %w", token, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("history price %s: service reported failure", token)
	}

	points := make([]domain.PricePoint, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		points = append(points, domain.PricePoint{Timestamp: item.UnixTime, Value: item.Value})
	}
	return points, nil
}
