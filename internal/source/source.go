package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"audiograb/internal/config"
	"audiograb/internal/media/ffmpeg"
)

// MaxURLLength bounds accepted source URLs.
const MaxURLLength = 2048

var (
	// ErrInvalidURL marks input that does not name a supported media page.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrRestricted marks media that requires login, is private or is region/age gated.
	ErrRestricted = errors.New("restricted content")
	// ErrUnavailable marks media that could not be resolved or downloaded.
	ErrUnavailable = errors.New("media unavailable")
)

// Thumbnail is one candidate cover image.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// Metadata describes a resolved media item.
type Metadata struct {
	ID          string
	Title       string
	Author      string
	Description string
	Duration    time.Duration
	// Thumbnails are ordered by resolution, smallest first.
	Thumbnails []Thumbnail

	// handle lets a provider reuse its resolved object during download.
	handle any
}

// BestThumbnail returns the highest-resolution candidate.
func (m Metadata) BestThumbnail() (Thumbnail, bool) {
	if len(m.Thumbnails) == 0 {
		return Thumbnail{}, false
	}
	return m.Thumbnails[len(m.Thumbnails)-1], true
}

// Download describes the audio file written by DownloadAudio.
type Download struct {
	Path     string
	Bytes    int64
	MimeType string
}

// Fetcher resolves and downloads media from one provider.
type Fetcher interface {
	// Validate checks rawURL without any network I/O. Failures wrap ErrInvalidURL.
	Validate(rawURL string) error
	Resolve(ctx context.Context, rawURL string) (Metadata, error)
	// DownloadAudio writes the best audio stream next to dest. It returns only
	// after the file is complete and closed.
	DownloadAudio(ctx context.Context, rawURL string, meta Metadata, dest string) (Download, error)
}

// New builds the fetcher selected by cfg.Source.Provider.
func New(cfg *config.Config, runner ffmpeg.CommandRunner, httpClient *http.Client) (Fetcher, error) {
	if cfg == nil {
		return nil, errors.New("source: config is required")
	}
	switch cfg.Source.Provider {
	case config.ProviderYouTube, "":
		return NewYouTube(httpClient, cfg.Source.AllowedHosts), nil
	case config.ProviderYTDLP:
		return NewYTDLP(cfg.Source.YTDLPBinary, cfg.Source.UserAgent, cfg.Source.AllowedHosts, runner), nil
	default:
		return nil, fmt.Errorf("source: unknown provider %q", cfg.Source.Provider)
	}
}

// checkURL applies the grammar shared by every provider: an absolute http(s)
// URL of bounded length whose host is allowed.
func checkURL(rawURL string, allowedHosts []string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if len(trimmed) > MaxURLLength {
		return nil, fmt.Errorf("%w: longer than %d bytes", ErrInvalidURL, MaxURLLength)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("%w: credentials not allowed", ErrInvalidURL)
	}
	if !hostAllowed(parsed.Hostname(), allowedHosts) {
		return nil, fmt.Errorf("%w: host %q not allowed", ErrInvalidURL, parsed.Hostname())
	}
	return parsed, nil
}

func hostAllowed(host string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if host == candidate || strings.HasSuffix(host, "."+candidate) {
			return true
		}
	}
	return false
}

func sortThumbnails(thumbs []Thumbnail) []Thumbnail {
	out := make([]Thumbnail, 0, len(thumbs))
	for _, thumb := range thumbs {
		if strings.TrimSpace(thumb.URL) == "" {
			continue
		}
		out = append(out, thumb)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Width*out[i].Height < out[j].Width*out[j].Height
	})
	return out
}

// writeStream copies r into a new file at path. The file is synced and closed
// before returning; a partial or empty file is removed.
func writeStream(ctx context.Context, r io.Reader, path string) (written int64, err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	written, err = io.Copy(file, contextReader{ctx: ctx, r: r})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return written, ctxErr
		}
		return written, fmt.Errorf("%w: stream interrupted: %w", ErrUnavailable, err)
	}
	if written == 0 {
		return 0, fmt.Errorf("%w: empty audio stream", ErrUnavailable)
	}
	if err = file.Sync(); err != nil {
		return written, fmt.Errorf("sync %s: %w", path, err)
	}
	return written, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func extensionForMime(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	switch base {
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/mp4", "video/mp4":
		return ".m4a"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
