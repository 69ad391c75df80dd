package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/logging"
)

//nolint:gochecknoglobals // Cobra boilerplate
var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Inspect the shared slot table",
	Long: `Lists the execution slots and their state.

A worker killed by its watchdog leaves its slot IN_USE; use
"walletlab slots release <id>" to return it to the pool.`,
	Args: cobra.NoArgs,
	RunE: runSlotsList,
}

//nolint:gochecknoglobals // Cobra boilerplate
var slotsReleaseCmd = &cobra.Command{
	Use:   "release <slot_id>",
	Short: "Force a slot back to FREE",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlotsRelease,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	slotsCmd.AddCommand(slotsReleaseCmd)
	rootCmd.AddCommand(slotsCmd)
}

func runSlotsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := openStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	slots, err := st.slots.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}
	if len(slots) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "slot table not provisioned yet")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tSTATE")
	for _, s := range slots {
		fmt.Fprintf(w, "%s\t%s\n", s.ID, s.State)
	}
	return w.Flush()
}

func runSlotsRelease(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := openStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.slots.Release(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("release slot %s: %w", args[0], err)
	}
	logger.Info("slot-force-released", zap.String("slot", args[0]))
	fmt.Fprintf(cmd.OutOrStdout(), "slot %s released\n", args[0])
	return nil
}
