package main

import (
	"github.com/spf13/cobra"

	"audiograb/internal/serverun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return serverun.Run(cmd.Context(), cfg, serverun.Options{
				Bind:     bind,
				LogLevel: logLevel,
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}
