package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	defaultBinary    = "ffmpeg"
	defaultBitrate   = "192k"
	outputSampleRate = "44100"
	mp3Format        = "mp3"
)

// Transcoder converts a downloaded audio stream into a tagless MP3.
type Transcoder struct {
	Binary  string
	Bitrate string
	Runner  CommandRunner
}

// NewTranscoder returns a Transcoder, substituting defaults for empty values.
func NewTranscoder(binary, bitrate string, runner CommandRunner) *Transcoder {
	if strings.TrimSpace(binary) == "" {
		binary = defaultBinary
	}
	if strings.TrimSpace(bitrate) == "" {
		bitrate = defaultBitrate
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Transcoder{Binary: binary, Bitrate: bitrate, Runner: runner}
}

// Args builds the ffmpeg argument list. Source metadata is dropped; tags are
// written later by the Muxer.
func (t *Transcoder) Args(input, output string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", input,
		"-vn",
		"-map", "0:a:0",
		"-map_metadata", "-1",
		"-c:a", "libmp3lame",
		"-b:a", t.Bitrate,
		"-ar", outputSampleRate,
		"-f", mp3Format,
		output,
	}
}

// Transcode runs ffmpeg and confirms a non-empty output file exists.
func (t *Transcoder) Transcode(ctx context.Context, input, output string) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return errors.New("transcode: input and output paths are required")
	}
	if err := t.Runner.Run(ctx, t.Binary, t.Args(input, output)...); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	return requireOutput("transcode", output)
}

func requireOutput(op, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: output missing: %w", op, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: output %s is empty", op, path)
	}
	return nil
}
