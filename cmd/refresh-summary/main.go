// Command refresh-summary prints the most recent score diff recorded by the
// refresher.
//
// Usage:
//
//	refresh-summary
//	REFRESH_DIFF_LOG_PATH=/srv/history/score_diffs.jsonl refresh-summary
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/projection-refresher/internal/config"
	"github.com/albapepper/projection-refresher/internal/difflog"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "refresh-summary",
		Short:         "Show the latest projection refresh diff",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := difflog.New(cfg.DiffLogPath, cfg.DiffLogLimit, cfg.NewLogger())
			entry, err := log.Latest()
			if errors.Is(err, difflog.ErrEmpty) {
				fmt.Fprintln(cmd.OutOrStdout(), "No diff entries recorded yet.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", log.Path(), err)
			}
			render(cmd.OutOrStdout(), entry)
			return nil
		},
	}
}
