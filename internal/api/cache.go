package api

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
)

// resultCache keeps recently served result records, keyed by wallet and by session.
type resultCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func newResultCache(maxItems int64, ttl time.Duration, logger *zap.Logger) (*resultCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &resultCache{cache: c, ttl: ttl, logger: logger}, nil
}

func walletKey(wallet string) string     { return "wallet:" + wallet }
func sessionKey(sessionID string) string { return "session:" + sessionID }

func (c *resultCache) get(key string) (*domain.SessionResult, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		c.logger.Debug("result-cache-miss", zap.String("key", key))
		return nil, false
	}
	r, ok := v.(*domain.SessionResult)
	return r, ok
}

// put caches r under both of its keys. Cost = 1 per entry.
func (c *resultCache) put(r *domain.SessionResult) {
	c.cache.SetWithTTL(walletKey(r.WalletAddress), r, 1, c.ttl)
	c.cache.SetWithTTL(sessionKey(r.SessionID), r, 1, c.ttl)
}

func (c *resultCache) wait() {
	c.cache.Wait()
}

func (c *resultCache) close() {
	c.cache.Close()
}
