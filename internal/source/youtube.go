package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// YouTube resolves and streams media with the kkdai/youtube client.
type YouTube struct {
	client       *youtube.Client
	allowedHosts []string
}

func NewYouTube(httpClient *http.Client, allowedHosts []string) *YouTube {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTube{
		client:       &youtube.Client{HTTPClient: httpClient},
		allowedHosts: append([]string(nil), allowedHosts...),
	}
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

func (y *YouTube) Validate(rawURL string) error {
	_, err := y.videoID(rawURL)
	return err
}

// videoID extracts the 11-character ID from watch, youtu.be, shorts, embed
// and live URLs. Any other shape is rejected before network I/O.
func (y *YouTube) videoID(rawURL string) (string, error) {
	parsed, err := checkURL(rawURL, y.allowedHosts)
	if err != nil {
		return "", err
	}
	var id string
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	switch {
	case hostAllowed(parsed.Hostname(), []string{"youtu.be"}):
		if len(segments) == 1 {
			id = segments[0]
		}
	case parsed.Path == "/watch" || parsed.Path == "/watch/":
		id = parsed.Query().Get("v")
	case len(segments) == 2 && slices.Contains([]string{"shorts", "embed", "live", "v"}, segments[0]):
		id = segments[1]
	}
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", ErrInvalidURL, parsed.Redacted())
	}
	return id, nil
}

func (y *YouTube) Resolve(ctx context.Context, rawURL string) (Metadata, error) {
	id, err := y.videoID(rawURL)
	if err != nil {
		return Metadata{}, err
	}
	video, err := y.client.GetVideoContext(ctx, id)
	if err != nil {
		return Metadata{}, categorizeYouTubeError(ctx, "fetch video metadata", err)
	}
	return metadataFromVideo(video), nil
}

func (y *YouTube) DownloadAudio(ctx context.Context, rawURL string, meta Metadata, dest string) (Download, error) {
	video, _ := meta.handle.(*youtube.Video)
	if video == nil {
		resolved, err := y.Resolve(ctx, rawURL)
		if err != nil {
			return Download{}, err
		}
		video, _ = resolved.handle.(*youtube.Video)
	}
	format, err := bestAudioFormat(video.Formats)
	if err != nil {
		return Download{}, err
	}

	stream, _, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return Download{}, categorizeYouTubeError(ctx, "open audio stream", err)
	}
	defer stream.Close()

	path := dest + extensionForMime(format.MimeType)
	written, err := writeStream(ctx, stream, path)
	if err != nil {
		return Download{}, fmt.Errorf("download audio: %w", err)
	}
	return Download{Path: path, Bytes: written, MimeType: format.MimeType}, nil
}

func metadataFromVideo(video *youtube.Video) Metadata {
	thumbs := make([]Thumbnail, 0, len(video.Thumbnails))
	for _, thumb := range video.Thumbnails {
		thumbs = append(thumbs, Thumbnail{URL: thumb.URL, Width: int(thumb.Width), Height: int(thumb.Height)})
	}
	return Metadata{
		ID:          video.ID,
		Title:       video.Title,
		Author:      video.Author,
		Description: video.Description,
		Duration:    video.Duration,
		Thumbnails:  sortThumbnails(thumbs),
		handle:      video,
	}
}

// bestAudioFormat prefers audio-only formats and ranks them by bitrate.
func bestAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	candidates := formats.Type("audio")
	if len(candidates) == 0 {
		candidates = formats.WithAudioChannels()
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no audio formats", ErrUnavailable)
	}
	ranked := append(youtube.FormatList(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Bitrate != ranked[j].Bitrate {
			return ranked[i].Bitrate > ranked[j].Bitrate
		}
		return ranked[i].AverageBitrate > ranked[j].AverageBitrate
	})
	return &ranked[0], nil
}

func categorizeYouTubeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%s: %w: %w", op, ErrRestricted, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidURL, err)
	}
	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrRestricted, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
