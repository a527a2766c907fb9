package main

import (
	"fmt"

	"github.com/aussiebroadwan/accounts/internal/accounts/app"
	"github.com/spf13/cobra"
)

func newHousekeepingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "housekeeping",
		Short: "Clear expired verification and reset tokens once",
		Long:  "Run a single housekeeping pass (typically from cron when the service runs with a long housekeeping_interval).",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.NewLogger(opts.cfg)

			cleared, err := app.RunHousekeeping(cmd.Context(), opts.cfg, logger)
			if err != nil {
				return fmt.Errorf("housekeeping failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d expired tokens\n", cleared)
			return nil
		},
	}
}
