package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audiograb/internal/media/ffmpeg"
)

// YTDLP shells out to yt-dlp for sites the native client does not cover.
type YTDLP struct {
	binary       string
	userAgent    string
	allowedHosts []string
	runner       ffmpeg.CommandRunner
}

func NewYTDLP(binary, userAgent string, allowedHosts []string, runner ffmpeg.CommandRunner) *YTDLP {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if runner == nil {
		runner = ffmpeg.ExecRunner{}
	}
	return &YTDLP{
		binary:       binary,
		userAgent:    strings.TrimSpace(userAgent),
		allowedHosts: append([]string(nil), allowedHosts...),
		runner:       runner,
	}
}

func (y *YTDLP) Validate(rawURL string) error {
	_, err := checkURL(rawURL, y.allowedHosts)
	return err
}

type ytdlpInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Channel     string  `json:"channel"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Thumbnails  []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"thumbnails"`
}

func (y *YTDLP) Resolve(ctx context.Context, rawURL string) (Metadata, error) {
	if err := y.Validate(rawURL); err != nil {
		return Metadata{}, err
	}
	args := y.baseArgs("-J", "--skip-download")
	args = append(args, "--", strings.TrimSpace(rawURL))
	output, err := y.runner.Output(ctx, y.binary, args...)
	if err != nil {
		return Metadata{}, categorizeToolError(ctx, "yt-dlp resolve", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp resolve: %w: parse metadata: %w", ErrUnavailable, err)
	}
	author := info.Uploader
	if author == "" {
		author = info.Channel
	}
	thumbs := make([]Thumbnail, 0, len(info.Thumbnails)+1)
	for _, thumb := range info.Thumbnails {
		thumbs = append(thumbs, Thumbnail{URL: thumb.URL, Width: thumb.Width, Height: thumb.Height})
	}
	if len(thumbs) == 0 && info.Thumbnail != "" {
		thumbs = append(thumbs, Thumbnail{URL: info.Thumbnail})
	}
	return Metadata{
		ID:          info.ID,
		Title:       info.Title,
		Author:      author,
		Description: info.Description,
		Duration:    time.Duration(info.Duration * float64(time.Second)),
		Thumbnails:  sortThumbnails(thumbs),
	}, nil
}

func (y *YTDLP) DownloadAudio(ctx context.Context, rawURL string, _ Metadata, dest string) (Download, error) {
	if err := y.Validate(rawURL); err != nil {
		return Download{}, err
	}
	args := y.baseArgs("-f", "bestaudio", "-o", dest+".%(ext)s", "--no-part")
	args = append(args, "--", strings.TrimSpace(rawURL))
	if err := y.runner.Run(ctx, y.binary, args...); err != nil {
		return Download{}, categorizeToolError(ctx, "yt-dlp download", err)
	}

	matches, err := filepath.Glob(globEscape(dest) + ".*")
	if err != nil || len(matches) == 0 {
		return Download{}, fmt.Errorf("yt-dlp download: %w: no output file", ErrUnavailable)
	}
	path := matches[0]
	info, err := os.Stat(path)
	if err != nil {
		return Download{}, fmt.Errorf("yt-dlp download: %w", err)
	}
	if info.Size() == 0 {
		return Download{}, fmt.Errorf("yt-dlp download: %w: empty audio file", ErrUnavailable)
	}
	return Download{Path: path, Bytes: info.Size()}, nil
}

func (y *YTDLP) baseArgs(extra ...string) []string {
	args := []string{"--no-warnings", "--no-playlist", "--no-progress"}
	if y.userAgent != "" {
		args = append(args, "--user-agent", y.userAgent)
	}
	return append(args, extra...)
}

var restrictedMarkers = []string{
	"private video",
	"sign in",
	"login required",
	"members-only",
	"members only",
	"age-restricted",
	"age restricted",
	"not available in your country",
}

// categorizeToolError maps yt-dlp's stderr onto the shared error categories.
func categorizeToolError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	message := strings.ToLower(err.Error())
	for _, marker := range restrictedMarkers {
		if strings.Contains(message, marker) {
			return fmt.Errorf("%s: %w: %w", op, ErrRestricted, err)
		}
	}
	if strings.Contains(message, "unsupported url") {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidURL, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func globEscape(path string) string {
	replacer := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return replacer.Replace(path)
}
