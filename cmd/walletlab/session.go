package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/config"
	"solana-wallet-lab/internal/logging"
	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/session"
	"solana-wallet-lab/internal/storage/sqlite"
)

//nolint:gochecknoglobals // Cobra boilerplate
var sessionCmd = &cobra.Command{
	Use:   "session <wallet> [session_id] [config] [slot]",
	Short: "Run one wallet evaluation session",
	Long: `Runs the full session pipeline for one wallet: ingest transfers, enrich
metadata, clean, price, match trades FIFO and write the result record.

The request API launches workers with all four arguments and a slot it already
holds. Run by hand with only a wallet, the session gets a fresh id and
acquires its own slot.`,
	Args: cobra.RangeArgs(1, 4),
	RunE: runSession,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	req := session.Request{Wallet: args[0]}
	var configPath string
	if len(args) > 1 {
		req.SessionID = args[1]
	}
	if len(args) > 2 {
		configPath = args[2]
	}
	if len(args) > 3 {
		req.SlotID = args[3]
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	base, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = base.Sync() }()

	logger, closeLog, err := logging.ForSession(base, cfg.Logging.Level, cfg.Logging.Dir, req.SessionID)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("stores-open-failed", zap.Error(err))
		return err
	}
	defer st.Close()

	orch := newOrchestrator(cfg, st, logger, req.SessionID)
	out, err := orch.Run(ctx, req)
	switch {
	case err == nil:
		fmt.Fprintf(cmd.OutOrStdout(), "session %s completed: profit %.4f USD, win rate %.2f%%\n",
			req.SessionID, out.Result.TotalProfitUSD, out.Result.WinRate*100)
		return nil
	case errors.Is(err, session.ErrWalletAlreadyEvaluated):
		fmt.Fprintf(cmd.OutOrStdout(), "wallet %s was already evaluated\n", req.Wallet)
		return nil
	default:
		return fmt.Errorf("session %s: %w", req.SessionID, err)
	}
}

// newOrchestrator wires an orchestrator for a worker process.
func newOrchestrator(cfg *config.Config, st *stores, logger *zap.Logger, instance string) *session.Orchestrator {
	opts := session.Options{
		Slots:     st.slots,
		Wallets:   st.wallets,
		Sessions:  st.sessions,
		Results:   st.results,
		Ledgers:   sqlite.NewLedgerFactory(cfg.Session.DataDir),
		Pipeline:  pipelineFactory(cfg, st.prices),
		Timeout:   cfg.Session.Timeout,
		KillGrace: cfg.Session.KillGrace,
		Logger:    logger,
	}
	if url := cfg.Metrics.PushgatewayURL; url != "" {
		opts.Push = func(ctx context.Context) error {
			return observability.DefaultMetrics.Push(ctx, url, "walletlab_session", instance)
		}
	}
	return session.New(opts)
}
