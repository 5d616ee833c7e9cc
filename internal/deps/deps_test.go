package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audiograb/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for empty command: %q", results[2].Detail)
	}
}

func TestRequirementsFollowProvider(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	if !reqs[2].Optional {
		t.Fatal("yt-dlp should be optional for the youtube provider")
	}
	cfg.Source.Provider = config.ProviderYTDLP
	if Requirements(&cfg)[2].Optional {
		t.Fatal("yt-dlp should be required for the ytdlp provider")
	}
}

func TestHealthyIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "FFmpeg", Available: true},
		{Name: "yt-dlp", Optional: true},
	}
	if !Healthy(statuses) {
		t.Fatal("missing optional dependency must not fail health")
	}
	statuses = append(statuses, Status{Name: "FFprobe"})
	if Healthy(statuses) {
		t.Fatal("missing required dependency must fail health")
	}
}

type stubRunner struct {
	output []byte
	err    error
}

func (s stubRunner) Output(context.Context, string, ...string) ([]byte, error) {
	return s.output, s.err
}

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D mjpeg                MJPEG (Motion JPEG)
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3) (codec mp3)
`

func TestCheckEncoder(t *testing.T) {
	ctx := context.Background()
	if status := CheckEncoder(ctx, stubRunner{output: []byte(encodersOutput)}, "ffmpeg", MP3Encoder); !status.Available {
		t.Fatalf("expected libmp3lame to be found: %+v", status)
	}
	if status := CheckEncoder(ctx, stubRunner{output: []byte(encodersOutput)}, "ffmpeg", "libshine"); status.Available {
		t.Fatal("expected missing encoder to be reported")
	}
	if status := CheckEncoder(ctx, stubRunner{err: errors.New("exec failed")}, "ffmpeg", MP3Encoder); status.Available || status.Detail == "" {
		t.Fatalf("expected runner error to be reported: %+v", status)
	}
}
