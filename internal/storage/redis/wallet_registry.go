package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-wallet-lab/internal/storage"
)

// reserveScript adds the wallet with the next sequence number unless present.
var reserveScript = redis.NewScript(`
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
local seq = redis.call('INCR', KEYS[2])
redis.call('ZADD', KEYS[1], seq, ARGV[1])
return 1
`) //nolint:gochecknoglobals

// WalletRegistry is a Redis implementation of storage.WalletRegistry.
// Wallets live in a sorted set scored by reservation order.
type WalletRegistry struct {
	client   *redis.Client
	setKey   string
	seqKey   string
	lockWait time.Duration
}

// NewWalletRegistry creates a registry on <prefix>:wallets.
func NewWalletRegistry(client *redis.Client, opts Options) *WalletRegistry {
	p := prefixOr(opts.Prefix)
	return &WalletRegistry{
		client:   client,
		setKey:   p + ":wallets",
		seqKey:   p + ":wallets:seq",
		lockWait: opts.LockWait,
	}
}

// CheckAndReserve adds wallet unless already present.
func (r *WalletRegistry) CheckAndReserve(ctx context.Context, wallet string) (bool, error) {
	if wallet == "" {
		return false, storage.ErrInvalidInput
	}

	var reserved bool
	err := bounded(ctx, r.lockWait, func(ctx context.Context) error {
		n, err := reserveScript.Run(ctx, r.client, []string{r.setKey, r.seqKey}, wallet).Int()
		reserved = n == 1
		return err
	})
	if err != nil {
		return false, err
	}
	return reserved, nil
}

// Contains reports whether wallet was reserved.
func (r *WalletRegistry) Contains(ctx context.Context, wallet string) (bool, error) {
	_, err := r.client.ZScore(ctx, r.setKey, wallet).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns wallets in reservation order.
func (r *WalletRegistry) List(ctx context.Context) ([]string, error) {
	wallets, err := r.client.ZRange(ctx, r.setKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if wallets == nil {
		wallets = []string{}
	}
	return wallets, nil
}

var _ storage.WalletRegistry = (*WalletRegistry)(nil)
