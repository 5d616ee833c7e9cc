package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
)

// OutputRunner runs a command and returns its stdout.
type OutputRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// MP3Encoder is the ffmpeg encoder the transcoder requires.
const MP3Encoder = "libmp3lame"

// CheckEncoder confirms that ffmpeg was built with the named audio encoder.
func CheckEncoder(ctx context.Context, runner OutputRunner, ffmpegBinary, encoder string) Status {
	status := Status{
		Name:        "FFmpeg " + encoder,
		Command:     ffmpegBinary,
		Description: "MP3 encoder used for transcoding",
	}
	output, err := runner.Output(ctx, ffmpegBinary, "-hide_banner", "-encoders")
	if err != nil {
		status.Detail = fmt.Sprintf("list encoders: %v", err)
		return status
	}
	if !hasEncoder(output, encoder) {
		status.Detail = fmt.Sprintf("encoder %q not compiled in", encoder)
		return status
	}
	status.Available = true
	return status
}

// hasEncoder scans `ffmpeg -encoders` output, whose rows look like
// " A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3)".
func hasEncoder(output []byte, encoder string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && strings.HasPrefix(fields[0], "A") && fields[1] == encoder {
			return true
		}
	}
	return false
}
