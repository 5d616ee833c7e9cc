package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"

	"audiograb/internal/config"
	"audiograb/internal/testsupport"
)

func TestYouTubeValidate(t *testing.T) {
	cfg := config.Default()
	yt := NewYouTube(nil, cfg.Source.AllowedHosts)

	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ&feature=share",
		"https://m.youtube.com/watch?feature=share&v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?t=42",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ?si=abc",
	}
	for _, raw := range valid {
		if err := yt.Validate(raw); err != nil {
			t.Fatalf("Validate(%q) returned error: %v", raw, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"ftp://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://evil.example/watch?v=dQw4w9WgXcQ",
		"https://user:pw@www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/",
		"https://www.youtube.com/feed/trending",
		"https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw",
		"https://www.youtube.com/watch?v=short",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ%22",
		"https://www.youtube.com/shorts/",
		"https://www.youtube.com/embed/dQw4w9WgXcQ/extra",
		"https://youtu.be/",
		"https://youtu.be/dQw4w9WgXcQ/extra",
		"https://www.youtube.com/watch?v=" + strings.Repeat("a", MaxURLLength),
	}
	for _, raw := range invalid {
		if err := yt.Validate(raw); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("Validate(%q) = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestHostAllowedMatchesSubdomains(t *testing.T) {
	allowed := []string{"example.com"}
	if !hostAllowed("media.example.com", allowed) {
		t.Fatal("expected subdomain to be allowed")
	}
	if hostAllowed("badexample.com", allowed) {
		t.Fatal("suffix without dot must not match")
	}
	if !hostAllowed("anything.test", nil) {
		t.Fatal("empty allow list permits every host")
	}
}

func TestBestAudioFormatRanksByBitrate(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 1, MimeType: `video/mp4; codecs="avc1, mp4a"`, Bitrate: 900000, AudioChannels: 2},
		{ItagNo: 2, MimeType: `audio/webm; codecs="opus"`, Bitrate: 128000, AverageBitrate: 120000},
		{ItagNo: 3, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AverageBitrate: 100000},
		{ItagNo: 4, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 160000, AverageBitrate: 150000},
	}
	best, err := bestAudioFormat(formats)
	if err != nil {
		t.Fatalf("bestAudioFormat returned error: %v", err)
	}
	if best.ItagNo != 4 {
		t.Fatalf("expected itag 4, got %d", best.ItagNo)
	}
}

func TestBestAudioFormatFallsBackToMuxedAudio(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1, mp4a"`, Bitrate: 500000, AudioChannels: 2},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1"`, Bitrate: 4000000},
	}
	best, err := bestAudioFormat(formats)
	if err != nil {
		t.Fatalf("bestAudioFormat returned error: %v", err)
	}
	if best.ItagNo != 18 {
		t.Fatalf("expected muxed format with audio, got %d", best.ItagNo)
	}

	if _, err := bestAudioFormat(youtube.FormatList{{ItagNo: 137, MimeType: "video/mp4"}}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable without audio, got %v", err)
	}
}

func TestCategorizeYouTubeError(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"login", youtube.ErrLoginRequired, ErrRestricted},
		{"private", youtube.ErrVideoPrivate, ErrRestricted},
		{"playability", &youtube.ErrPlayabiltyStatus{Status: "UNPLAYABLE", Reason: "region"}, ErrRestricted},
		{"short id", youtube.ErrVideoIDMinLength, ErrInvalidURL},
		{"network", errors.New("connection reset"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorizeYouTubeError(ctx, "fetch", tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if !errors.Is(got, tt.err) && !errors.As(got, new(*youtube.ErrPlayabiltyStatus)) {
				t.Fatalf("expected original error preserved, got %v", got)
			}
		})
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if got := categorizeYouTubeError(canceled, "fetch", errors.New("boom")); !errors.Is(got, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", got)
	}
}

func TestMetadataFromVideoOrdersThumbnails(t *testing.T) {
	video := &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Song",
		Author:   "Band",
		Duration: 3 * time.Minute,
		Thumbnails: youtube.Thumbnails{
			{URL: "https://i.ytimg.com/vi/x/maxresdefault.jpg", Width: 1280, Height: 720},
			{URL: "https://i.ytimg.com/vi/x/default.jpg", Width: 120, Height: 90},
			{URL: ""},
		},
	}
	meta := metadataFromVideo(video)
	best, ok := meta.BestThumbnail()
	if !ok || best.Width != 1280 {
		t.Fatalf("expected highest resolution last, got %+v", meta.Thumbnails)
	}
	if len(meta.Thumbnails) != 2 {
		t.Fatalf("expected empty thumbnail URL dropped, got %+v", meta.Thumbnails)
	}
	if meta.handle != video {
		t.Fatal("expected resolved video to be retained for download")
	}
	if _, ok := (Metadata{}).BestThumbnail(); ok {
		t.Fatal("expected no thumbnail for empty metadata")
	}
}

func TestWriteStream(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ok.webm")
	n, err := writeStream(context.Background(), strings.NewReader("audio-bytes"), path)
	if err != nil || n != int64(len("audio-bytes")) {
		t.Fatalf("writeStream = %d, %v", n, err)
	}

	empty := filepath.Join(dir, "empty.webm")
	if _, err := writeStream(context.Background(), strings.NewReader(""), empty); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for empty stream, got %v", err)
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Fatalf("expected empty file removed, stat err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := filepath.Join(dir, "canceled.webm")
	if _, err := writeStream(ctx, strings.NewReader("data"), canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(canceled); !os.IsNotExist(err) {
		t.Fatalf("expected partial file removed, stat err=%v", err)
	}

	if _, err := writeStream(context.Background(), strings.NewReader("again"), path); err == nil {
		t.Fatal("expected existing file to be refused")
	}
}

const ytdlpJSON = `{
  "id": "abc123",
  "title": "Live at \"The Hall\"",
  "uploader": "",
  "channel": "Some Channel",
  "duration": 61.5,
  "thumbnails": [
    {"url": "https://img.example/hq.jpg", "width": 480, "height": 360},
    {"url": "https://img.example/sd.jpg", "width": 120, "height": 90}
  ]
}`

func TestYTDLPResolve(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: func(_ context.Context, call testsupport.Call) ([]byte, error) {
		return []byte(ytdlpJSON), nil
	}}
	y := NewYTDLP("yt-dlp", "audiograb-test", []string{"example.com"}, runner)

	meta, err := y.Resolve(context.Background(), "https://media.example.com/v/abc123")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if meta.Title != `Live at "The Hall"` || meta.Author != "Some Channel" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.Duration != 61500*time.Millisecond {
		t.Fatalf("unexpected duration %v", meta.Duration)
	}
	if best, _ := meta.BestThumbnail(); best.URL != "https://img.example/hq.jpg" {
		t.Fatalf("unexpected best thumbnail %+v", best)
	}

	call := runner.Calls()[0]
	joined := strings.Join(call.Args, " ")
	for _, want := range []string{"-J", "--skip-download", "--no-playlist", "--user-agent audiograb-test", "-- https://media.example.com/v/abc123"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
}

func TestYTDLPDownloadAudio(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: func(_ context.Context, call testsupport.Call) ([]byte, error) {
		target := strings.Replace(call.ArgAfter("-o"), "%(ext)s", "webm", 1)
		return nil, testsupport.WriteOutput(target, []byte("opus-data"))
	}}
	y := NewYTDLP("", "", nil, runner)
	dest := filepath.Join(t.TempDir(), "source")

	dl, err := y.DownloadAudio(context.Background(), "https://media.example.com/v/abc123", Metadata{}, dest)
	if err != nil {
		t.Fatalf("DownloadAudio returned error: %v", err)
	}
	if dl.Path != dest+".webm" || dl.Bytes != int64(len("opus-data")) {
		t.Fatalf("unexpected download %+v", dl)
	}
	if runner.Calls()[0].Name != "yt-dlp" {
		t.Fatalf("expected default binary, got %q", runner.Calls()[0].Name)
	}
}

func TestYTDLPDownloadWithoutOutputFails(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: func(context.Context, testsupport.Call) ([]byte, error) {
		return nil, nil
	}}
	y := NewYTDLP("yt-dlp", "", nil, runner)
	_, err := y.DownloadAudio(context.Background(), "https://media.example.com/v/1", Metadata{}, filepath.Join(t.TempDir(), "source"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCategorizeToolError(t *testing.T) {
	ctx := context.Background()
	if err := categorizeToolError(ctx, "op", errors.New("ERROR: [youtube] x: Private video. Sign in")); !errors.Is(err, ErrRestricted) {
		t.Fatalf("expected ErrRestricted, got %v", err)
	}
	if err := categorizeToolError(ctx, "op", errors.New("ERROR: Unsupported URL: https://x")); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if err := categorizeToolError(ctx, "op", errors.New("HTTP Error 500")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.Default()
	fetcher, err := New(&cfg, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := fetcher.(*YouTube); !ok {
		t.Fatalf("expected YouTube provider, got %T", fetcher)
	}

	cfg.Source.Provider = config.ProviderYTDLP
	fetcher, err = New(&cfg, &testsupport.FakeRunner{}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := fetcher.(*YTDLP); !ok {
		t.Fatalf("expected YTDLP provider, got %T", fetcher)
	}

	cfg.Source.Provider = "vimeo"
	if _, err := New(&cfg, nil, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
