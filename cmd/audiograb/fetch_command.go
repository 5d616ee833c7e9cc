package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"audiograb/internal/media/ffmpeg"
	"audiograb/internal/pipeline"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var artwork bool
	var tags bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download one URL to the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := consoleLogger(cfg, cmd.ErrOrStderr())
			svc, err := pipeline.New(cfg, logger, ffmpeg.ExecRunner{}, &http.Client{}, nil)
			if err != nil {
				return err
			}
			result, err := svc.Run(cmd.Context(), pipeline.Request{
				URL:          args[0],
				WithArtwork:  artwork || tags,
				PopulateTags: tags,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, fetchOutput{
					File:     result.Path,
					Title:    result.Title,
					Bytes:    result.Bytes,
					HasCover: result.HasCover,
					Elapsed:  result.Elapsed.Round(time.Millisecond).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&artwork, "artwork", false, "Embed the video thumbnail as cover art")
	cmd.Flags().BoolVar(&tags, "tags", false, "Write title, artist, album, genre and comment tags (implies --artwork)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

type fetchOutput struct {
	File     string `json:"file"`
	Title    string `json:"title"`
	Bytes    int64  `json:"bytes"`
	HasCover bool   `json:"has_cover"`
	Elapsed  string `json:"elapsed"`
}
