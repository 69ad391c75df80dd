// Package solanafm reads wallet transfer history from the SolanaFM API.
package solanafm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"solana-wallet-lab/internal/provider"
)

// DefaultBaseURL is the public SolanaFM endpoint.
const DefaultBaseURL = "https://api.solana.fm"

// transfer actions that move SPL tokens between accounts.
var tokenTransferActions = map[string]bool{
	"transfer":        true,
	"transferChecked": true,
}

// Client implements provider.TransferSource.
type Client struct {
	http    *provider.Client
	baseURL string
	apiKey  string
}

// NewClient creates a client authenticating with apiKey.
func NewClient(baseURL, apiKey string, opts ...provider.ClientOption) *Client {
	return &Client{
		http:    provider.NewClient(opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Compile-time interface check.
var _ provider.TransferSource = (*Client)(nil)

type transactionsResponse struct {
	Result struct {
		Data []struct {
			Signature string `json:"signature"`
		} `json:"data"`
	} `json:"result"`
}

type transfersRequest struct {
	TransactionHashes []string `json:"transactionHashes"`
}

type transfersResponse struct {
	Result []struct {
		TransactionHash string          `json:"transactionHash"`
		Data            []transferEntry `json:"data"`
	} `json:"result"`
}

type transferEntry struct {
	Action      string  `json:"action"`
	Token       string  `json:"token"`
	Timestamp   int64   `json:"timestamp"`
	Amount      float64 `json:"amount"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
}

// ListSignatures implements provider.TransferSource.
func (c *Client) ListSignatures(ctx context.Context, wallet string, page, limit int) ([]string, error) {
	var resp transactionsResponse
	err := c.http.SendAndParse(ctx, &provider.RequestOptions{
		Method:  http.MethodGet,
		URL:     fmt.Sprintf("%s/v0/accounts/%s/transactions", c.baseURL, url.PathEscape(wallet)),
		Headers: c.headers(),
		Query: url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(limit)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("list transactions page %d: %w", page, err)
	}

	sigs := make([]string, 0, len(resp.Result.Data))
	for _, tx := range resp.Result.Data {
		if tx.Signature != "" {
			sigs = append(sigs, tx.Signature)
		}
	}
	return sigs, nil
}

// GetTransfers implements provider.TransferSource.
// Only token-carrying transfer/transferChecked entries are returned.
func (c *Client) GetTransfers(ctx context.Context, signatures []string) ([]provider.TransferEntry, error) {
	if len(signatures) == 0 {
		return nil, nil
	}

	var resp transfersResponse
	err := c.http.SendAndParse(ctx, &provider.RequestOptions{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/v0/transfers",
		Headers: c.headers(),
		Body:    transfersRequest{TransactionHashes: signatures},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get transfers for %d transactions: %w", len(signatures), err)
	}

	var entries []provider.TransferEntry
	for _, tx := range resp.Result {
		for _, e := range tx.Data {
			if !tokenTransferActions[e.Action] || e.Token == "" {
				continue
			}
			entries = append(entries, provider.TransferEntry{
				Signature:   tx.TransactionHash,
				Timestamp:   e.Timestamp,
				Token:       e.Token,
				Amount:      e.Amount,
				Source:      e.Source,
				Destination: e.Destination,
			})
		}
	}
	return entries, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}
