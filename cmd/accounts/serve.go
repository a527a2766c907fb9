package main

import (
	"github.com/aussiebroadwan/accounts/internal/accounts/app"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long:  "Apply migrations, start the HTTP service and the housekeeping worker, and block until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.NewLogger(opts.cfg)

			application, err := app.New(opts.cfg, logger)
			if err != nil {
				logger.Error("failed to initialize application", "error", err)
				return err
			}

			return application.Run()
		},
	}
}
