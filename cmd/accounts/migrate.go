package main

import (
	"github.com/aussiebroadwan/accounts/internal/accounts/app"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.NewLogger(opts.cfg)

			st, err := app.OpenStore(opts.cfg, logger)
			if err != nil {
				return err
			}
			return st.Close()
		},
	}
}
