package main

import (
	"fmt"

	"github.com/aussiebroadwan/accounts/internal/accounts/app"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	cfg        app.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "accounts",
		Short: "Account lifecycle service",
		Long: `accounts runs the account lifecycle service: registration, email verification,
login and password reset backed by SQLite or PostgreSQL.

Every setting can be given in the YAML file passed with --config or as an
environment variable of the same name in upper case (e.g. DATABASE_URL).`,
		Version:      app.BuildVersion,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}

			cfg, err := app.LoadConfig(opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (optional, environment variables always apply)")

	serve := newServeCmd(opts)
	root.AddCommand(serve, newMigrateCmd(opts), newHousekeepingCmd(opts))

	// Running the bare binary serves.
	root.RunE = serve.RunE

	return root
}
