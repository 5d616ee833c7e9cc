package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"audiograb/internal/media/id3"
)

func newTagsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "tags <file>",
		Short:       "Show the ID3 tags and cover art embedded in an MP3",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := id3.Read(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, info)
			}

			rows := [][]string{
				{"Version", "ID3v2." + strconv.Itoa(int(info.Version))},
				{"Title", info.Title},
				{"Artist", info.Artist},
				{"Album", info.Album},
				{"Genre", info.Genre},
				{"Comment", info.Comment},
				{"Cover", yesNo(info.HasCover())},
			}
			for i, pic := range info.Pictures {
				rows = append(rows, []string{
					fmt.Sprintf("Picture %d", i+1),
					fmt.Sprintf("%s, %d bytes, %q", pic.MimeType, pic.Size, pic.Description),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, tableStyle{colorize: shouldColorize(out)}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tags as JSON")
	return cmd
}
