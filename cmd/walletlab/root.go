package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-wallet-lab/internal/config"
	"solana-wallet-lab/internal/observability"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "walletlab",
	Short: "Solana wallet profitability lab",
	Long: `walletlab reconstructs a wallet's token trades from its transfer history,
prices them historically, pairs buys with sells FIFO and reports profit,
win rate, hold times and best/worst trades.

Each evaluation runs as a session bound to one of a fixed pool of slots.`,
	SilenceUsage: true,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the YAML configuration file")
}

// loadConfig reads the configuration named by path, falling back to --config.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	if path == "" {
		path, _ = cmd.Flags().GetString("config")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Metrics.Namespace != "" {
		observability.UseNamespace(cfg.Metrics.Namespace)
	}
	return cfg, nil
}
