package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audiograb/internal/deps"
	"audiograb/internal/media/ffmpeg"
	"audiograb/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries and configured directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg)
			encoder := deps.CheckEncoder(cmd.Context(), ffmpeg.ExecRunner{}, cfg.FFmpeg.FFmpegBinary, deps.MP3Encoder)
			statuses = append(statuses, encoder)
			checks := preflight.RunAll(cmd.Context(), cfg)

			if asJSON {
				return writeJSON(cmd, struct {
					Dependencies []deps.Status      `json:"dependencies"`
					Checks       []preflight.Result `json:"checks"`
				}{statuses, checks})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(statuses)+len(checks))
			for _, status := range statuses {
				label := "missing"
				if status.Available {
					label = "ok"
				} else if status.Optional {
					label = "optional"
				}
				detail := status.Path
				if detail == "" {
					detail = status.Detail
				}
				rows = append(rows, []string{status.Name, statusText(status.Available || status.Optional, label, colorize), detail})
			}
			for _, check := range checks {
				label := "fail"
				if check.Passed {
					label = "ok"
				}
				rows = append(rows, []string{check.Name, statusText(check.Passed, label, colorize), check.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, tableStyle{colorize: colorize}))

			if !deps.Healthy(statuses) || len(preflight.Failed(checks)) > 0 {
				return fmt.Errorf("one or more required checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
