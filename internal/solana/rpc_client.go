package solana

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"solana-wallet-lab/internal/provider"
)

const (
	// DefaultAttempts is how many times a transient failure is tried.
	DefaultAttempts = 3
	// DefaultBackoff is the fixed wait between attempts.
	DefaultBackoff = 500 * time.Millisecond
)

// RPCClient reads accounts from a node over JSON-RPC 2.0.
type RPCClient struct {
	endpoint string
	http     *provider.Client
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
	nextID   atomic.Uint64
}

var _ AccountReader = (*RPCClient)(nil)

// RPCOption configures RPCClient.
type RPCOption func(*rpcSettings)

type rpcSettings struct {
	timeout  time.Duration
	attempts int
	backoff  time.Duration
}

// WithTimeout bounds a single RPC request.
func WithTimeout(d time.Duration) RPCOption {
	return func(s *rpcSettings) { s.timeout = d }
}

// WithAttempts sets the total number of tries for transient failures.
func WithAttempts(n int) RPCOption {
	return func(s *rpcSettings) { s.attempts = n }
}

// WithBackoff sets the delay between attempts.
func WithBackoff(d time.Duration) RPCOption {
	return func(s *rpcSettings) { s.backoff = d }
}

// NewRPCClient creates a client for the node at endpoint.
func NewRPCClient(endpoint string, opts ...RPCOption) *RPCClient {
	s := rpcSettings{timeout: provider.DefaultTimeout, attempts: DefaultAttempts, backoff: DefaultBackoff}
	for _, opt := range opts {
		opt(&s)
	}
	if s.attempts < 1 {
		s.attempts = 1
	}
	return &RPCClient{
		endpoint: endpoint,
		http:     provider.NewClient(provider.WithTimeout(s.timeout)),
		attempts: s.attempts,
		backoff:  s.backoff,
		sleep:    sleepContext,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error object returned by the node. It is never retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call sends one JSON-RPC request, retrying rate limits, 5xx responses and
// transport failures after a fixed delay.
func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	req := &provider.RequestOptions{
		Method: http.MethodPost,
		URL:    c.endpoint,
		Body:   rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params},
	}

	var err error
	for attempt := 1; ; attempt++ {
		var resp rpcResponse
		err = c.http.SendAndParse(ctx, req, &resp)
		if err == nil {
			if resp.Error != nil {
				return resp.Error
			}
			if result == nil || len(resp.Result) == 0 {
				return nil
			}
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !retryable(err) || attempt >= c.attempts {
			break
		}

		if err := c.sleep(ctx, c.backoff); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: %w", method, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(err error) bool {
	var status *provider.StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	return true
}

// GetAccountInfo implements AccountReader.
func (c *RPCClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	var result struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"` // [payload, encoding]
			Executable bool     `json:"executable"`
			RentEpoch  uint64   `json:"rentEpoch"`
		} `json:"value"`
	}
	params := []any{pubkey, map[string]any{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}

	v := result.Value
	info := &AccountInfo{Lamports: v.Lamports, Owner: v.Owner, Executable: v.Executable, RentEpoch: v.RentEpoch}
	if len(v.Data) > 0 {
		info.Data = v.Data[0]
	}
	return info, nil
}
