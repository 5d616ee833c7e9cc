package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiograb/internal/serverun"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale workspaces and expired outputs now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result := serverun.Sweep(cmd.Context(), cfg, consoleLogger(cfg, cmd.ErrOrStderr()))
			out := cmd.OutOrStdout()
			for _, path := range result.Removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			fmt.Fprintf(out, "Removed %d item(s)\n", len(result.Removed))
			if len(result.Errors) > 0 {
				for _, failure := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", failure.Path, failure.Error)
				}
				return fmt.Errorf("sweep finished with %d error(s)", len(result.Errors))
			}
			return nil
		},
	}
}
