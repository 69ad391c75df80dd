package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/config"
	"solana-wallet-lab/internal/enrichment"
	"solana-wallet-lab/internal/ingestion"
	"solana-wallet-lab/internal/normalization"
	"solana-wallet-lab/internal/provider"
	"solana-wallet-lab/internal/provider/birdeye"
	"solana-wallet-lab/internal/provider/raydium"
	"solana-wallet-lab/internal/provider/solanafm"
	"solana-wallet-lab/internal/session"
	"solana-wallet-lab/internal/solana"
	"solana-wallet-lab/internal/storage"
	chstore "solana-wallet-lab/internal/storage/clickhouse"
	"solana-wallet-lab/internal/storage/memory"
	"solana-wallet-lab/internal/storage/migrations"
	pgstore "solana-wallet-lab/internal/storage/postgres"
	redisstore "solana-wallet-lab/internal/storage/redis"
)

// stores holds the shared state backends of one process.
type stores struct {
	slots    storage.SlotStore
	wallets  storage.WalletRegistry
	sessions storage.SessionStore
	results  storage.ResultStore
	prices   storage.PriceSampleStore // nil unless the price cache is enabled

	// shared is true when sessions and results are visible to other processes.
	shared  bool
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured backends and applies migrations.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{}
	ok := false
	defer func() {
		if !ok {
			st.Close()
		}
	}()

	var pool *pgstore.Pool
	if cfg.Storage.PostgresDSN != "" {
		var err error
		pool, err = pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.sessions = pgstore.NewSessionStore(pool)
		st.results = pgstore.NewResultStore(pool)
		st.shared = true
	} else {
		st.sessions = memory.NewSessionStore()
		st.results = memory.NewResultStore()
	}

	switch cfg.Coordination.Backend {
	case "postgres":
		st.slots = pgstore.NewSlotStore(pool, cfg.Coordination.SlotIDs, cfg.Coordination.LockWait)
		st.wallets = pgstore.NewWalletRegistry(pool, cfg.Coordination.LockWait)
	case "redis":
		opts := redisstore.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			LockWait: cfg.Coordination.LockWait,
		}
		client, err := redisstore.NewClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.slots = redisstore.NewSlotStore(client, opts, cfg.Coordination.SlotIDs)
		st.wallets = redisstore.NewWalletRegistry(client, opts)
	default:
		st.slots = memory.NewSlotStore(cfg.Coordination.SlotIDs)
		st.wallets = memory.NewWalletRegistry()
		st.shared = false
	}

	if cfg.Enrichment.PriceCacheEnabled {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.closers = append(st.closers, func() { _ = conn.Close() })
		st.prices = chstore.NewPriceSampleStore(conn)
	}

	logger.Info("stores-opened",
		zap.String("coordination", cfg.Coordination.Backend),
		zap.Bool("shared_sessions", st.shared),
		zap.Bool("price_cache", st.prices != nil))
	ok = true
	return st, nil
}

// pipelineFactory builds the stage components with the credentials of a slot.
func pipelineFactory(cfg *config.Config, cache storage.PriceSampleStore) session.PipelineFactory {
	return func(slotID string, logger *zap.Logger) (*session.Pipeline, error) {
		creds := cfg.SlotCredential(slotID)
		if creds.SolanaFMKey == "" || creds.BirdeyeKey == "" {
			logger.Warn("slot-credentials-missing", zap.String("slot", slotID))
		}
		timeout := provider.WithTimeout(cfg.Providers.Timeout)

		var transfers provider.TransferSource = solanafm.NewClient(cfg.Providers.SolanaFMURL, creds.SolanaFMKey, timeout)

		var metadata provider.MetadataSource = raydium.NewClient(cfg.Providers.RaydiumURL, timeout)
		if cfg.Providers.RPCURL != "" {
			rpc := solana.NewRPCClient(cfg.Providers.RPCURL, solana.WithTimeout(cfg.Providers.Timeout))
			metadata = provider.NewFallbackMetadataSource(metadata, solana.NewMetadataResolver(rpc), logger)
		}

		var prices provider.PriceSource = birdeye.NewClient(cfg.Providers.BirdeyeURL, creds.BirdeyeKey, timeout)
		if cache != nil {
			prices = provider.NewCachedPriceSource(prices, cache, logger)
		}

		fetcher := ingestion.NewFetcher(ingestion.FetcherOptions{
			Source:        transfers,
			PageSize:      cfg.Ingestion.PageSize,
			SubBatchSize:  cfg.Ingestion.SubBatchSize,
			SubBatchDelay: cfg.Ingestion.SubBatchDelay,
			Sentinels:     cfg.Ingestion.SentinelAddresses,
			Logger:        logger,
		})

		return &session.Pipeline{
			Ingest: ingestion.NewRunner(ingestion.RunnerOptions{
				Fetcher:      fetcher,
				Budget:       cfg.Session.IngestBudget,
				MaxTransfers: cfg.Session.MaxTransfers,
				Logger:       logger,
			}),
			Metadata: enrichment.NewMetadataEnricher(enrichment.MetadataEnricherOptions{
				Source:     metadata,
				BatchSize:  cfg.Enrichment.MetadataBatchSize,
				BatchDelay: cfg.Enrichment.MetadataBatchDelay,
				Logger:     logger,
			}),
			Cleaner: normalization.NewCleaner(normalization.CleanerOptions{
				Retain: cfg.Session.RetainRows,
				Logger: logger,
			}),
			Price: enrichment.NewPriceEnricher(enrichment.PriceEnricherOptions{
				Source:             prices,
				Bucket:             cfg.Enrichment.PriceBucket,
				Window:             cfg.Enrichment.PriceWindow,
				CallDelay:          cfg.Enrichment.PriceCallDelay,
				AssumedTotalSupply: cfg.Enrichment.AssumedTotalSupply,
				Logger:             logger,
			}),
		}, nil
	}
}
