package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"audiograb/internal/textutil"
)

// Tags is the ID3 tag set written during the mux pass.
type Tags struct {
	Title   string
	Artist  string
	Album   string
	Genre   string
	Comment string
}

// Args returns -metadata pairs for every non-empty escaped value in a fixed order.
func (t Tags) Args() []string {
	fields := []struct{ key, value string }{
		{"title", t.Title},
		{"artist", t.Artist},
		{"album", t.Album},
		{"genre", t.Genre},
		{"comment", t.Comment},
	}
	args := make([]string, 0, len(fields)*2)
	for _, field := range fields {
		value := textutil.EscapeTagValue(field.value)
		if value == "" {
			continue
		}
		args = append(args, "-metadata", field.key+"="+value)
	}
	return args
}

// Empty reports whether no tag would be written.
func (t Tags) Empty() bool {
	return len(t.Args()) == 0
}

// MuxInput describes one mux pass. Cover is optional.
type MuxInput struct {
	Audio  string
	Cover  string
	Output string
	Tags   Tags
}

// Muxer repackages transcoded audio with an optional cover and the final tags.
type Muxer struct {
	Binary string
	Runner CommandRunner
}

func NewMuxer(binary string, runner CommandRunner) *Muxer {
	if strings.TrimSpace(binary) == "" {
		binary = defaultBinary
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Muxer{Binary: binary, Runner: runner}
}

// Args builds the ffmpeg argument list for in.
func (m *Muxer) Args(in MuxInput) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", in.Audio}
	if in.Cover != "" {
		args = append(args,
			"-i", in.Cover,
			"-map", "0:a:0",
			"-map", "1:v:0",
			"-c:a", "copy",
			"-c:v", "mjpeg",
			"-pix_fmt", "yuvj420p",
			"-disposition:v:0", "attached_pic",
			"-metadata:s:v", "title=Album cover",
			"-metadata:s:v", "comment=Cover (front)",
		)
	} else {
		args = append(args, "-map", "0:a:0", "-c:a", "copy")
	}
	args = append(args,
		"-map_metadata", "-1",
		"-id3v2_version", "4",
		"-write_id3v1", "0",
	)
	args = append(args, in.Tags.Args()...)
	return append(args, "-f", mp3Format, in.Output)
}

// Mux runs the mux pass and confirms a non-empty output file exists.
func (m *Muxer) Mux(ctx context.Context, in MuxInput) error {
	if strings.TrimSpace(in.Audio) == "" || strings.TrimSpace(in.Output) == "" {
		return errors.New("mux: audio and output paths are required")
	}
	if in.Audio == in.Output {
		return errors.New("mux: output must differ from input")
	}
	if err := m.Runner.Run(ctx, m.Binary, m.Args(in)...); err != nil {
		return fmt.Errorf("mux: %w", err)
	}
	return requireOutput("mux", in.Output)
}
