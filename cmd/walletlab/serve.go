package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/api"
	"solana-wallet-lab/internal/config"
	"solana-wallet-lab/internal/logging"
	"solana-wallet-lab/internal/session"
	"solana-wallet-lab/internal/storage/sqlite"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session API",
	Long: `Serves the request API. Each accepted POST /sessions takes a slot and
launches a worker process (walletlab session ...) that owns the slot until it
exits.

With the memory coordination backend, or without a postgres DSN for session
and result records, sessions run inside the server process instead.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	launcher, err := newLauncher(cfg, st, logger)
	if err != nil {
		return err
	}

	srv, err := api.New(&api.Config{
		Addr:     cfg.Server.Addr,
		Slots:    st.slots,
		Wallets:  st.wallets,
		Sessions: st.sessions,
		Results:  st.results,
		Launcher: launcher,
		LogDir:   cfg.Logging.Dir,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newLauncher picks worker processes when session state is shared across
// processes, in-process goroutines otherwise.
func newLauncher(cfg *config.Config, st *stores, logger *zap.Logger) (session.Launcher, error) {
	if st.shared {
		l, err := session.NewProcessLauncher(session.ProcessLauncherOptions{
			Executable: cfg.Server.Executable,
			Args:       []string{"session"},
			ConfigPath: cfg.Server.ConfigPath,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create launcher: %w", err)
		}
		logger.Info("launcher-selected", zap.String("mode", "process"))
		return l, nil
	}

	runner := &loggedRunner{cfg: cfg, st: st, base: logger}
	logger.Info("launcher-selected", zap.String("mode", "in-process"))
	return session.NewInProcessLauncher(runner, logger), nil
}

// loggedRunner runs in-process sessions, each with its own session log file.
// A fired watchdog only logs: it must not take the server down.
type loggedRunner struct {
	cfg  *config.Config
	st   *stores
	base *zap.Logger
}

func (r *loggedRunner) Run(ctx context.Context, req session.Request) (session.Outcome, error) {
	logger, closeLog, err := logging.ForSession(r.base, r.cfg.Logging.Level, r.cfg.Logging.Dir, req.SessionID)
	if err != nil {
		logger, closeLog = r.base.With(zap.String("session_id", req.SessionID)), func() error { return nil }
	}
	defer func() { _ = closeLog() }()

	orch := session.New(session.Options{
		Slots:     r.st.slots,
		Wallets:   r.st.wallets,
		Sessions:  r.st.sessions,
		Results:   r.st.results,
		Ledgers:   sqlite.NewLedgerFactory(r.cfg.Session.DataDir),
		Pipeline:  pipelineFactory(r.cfg, r.st.prices),
		Timeout:   r.cfg.Session.Timeout,
		KillGrace: r.cfg.Session.KillGrace,
		Exit: func(code int) {
			logger.Error("session-watchdog-fired", zap.Int("code", code))
		},
		Logger: logger,
	})
	return orch.Run(ctx, req)
}
