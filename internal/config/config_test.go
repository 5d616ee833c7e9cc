package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"audiograb/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("AUDIOGRAB_API_TOKEN", "")
	t.Setenv("AUDIOGRAB_NTFY_TOPIC", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "audiograb", "downloads")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, ".local", "share", "audiograb", "work") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Server.Bind != "127.0.0.1:5000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Server.PublicPrefix != "/downloads/" {
		t.Fatalf("unexpected public prefix: %q", cfg.Server.PublicPrefix)
	}
	if cfg.Server.APIToken != "" {
		t.Fatalf("expected auth disabled by default, got token %q", cfg.Server.APIToken)
	}
	if cfg.Source.Provider != config.ProviderYouTube {
		t.Fatalf("unexpected provider: %q", cfg.Source.Provider)
	}
	if cfg.RequestTimeout() != 600*time.Second {
		t.Fatalf("unexpected request timeout: %v", cfg.RequestTimeout())
	}
	if !cfg.Pipeline.VerifyOutput {
		t.Fatal("expected output verification enabled by default")
	}
	if cfg.OutputMaxAge() != 0 {
		t.Fatalf("expected outputs kept forever by default, got %v", cfg.OutputMaxAge())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "audiograb.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
			WorkDir   string `toml:"work_dir"`
		} `toml:"paths"`
		Server struct {
			PublicPrefix string   `toml:"public_prefix"`
			CORSOrigins  []string `toml:"cors_origins"`
		} `toml:"server"`
		Source struct {
			Provider string `toml:"provider"`
		} `toml:"source"`
		FFmpeg struct {
			AudioBitrate string `toml:"audio_bitrate"`
		} `toml:"ffmpeg"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Paths.WorkDir = filepath.Join(tempDir, "work")
	custom.Server.PublicPrefix = "files"
	custom.Server.CORSOrigins = []string{" https://app.example.com/ "}
	custom.Source.Provider = "yt-dlp"
	custom.FFmpeg.AudioBitrate = "320K"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Server.PublicPrefix != "/files/" {
		t.Fatalf("expected prefix normalized to /files/, got %q", cfg.Server.PublicPrefix)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Source.Provider != config.ProviderYTDLP {
		t.Fatalf("expected ytdlp provider, got %q", cfg.Source.Provider)
	}
	if cfg.FFmpeg.AudioBitrate != "320k" {
		t.Fatalf("expected bitrate lowercased, got %q", cfg.FFmpeg.AudioBitrate)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "audiograb.toml")
	if err := os.WriteFile(configPath, []byte("[server]\nbnid = \"0.0.0.0:1\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestEnvFallbacksApplyWhenFileValuesEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUDIOGRAB_API_TOKEN", " secret ")
	t.Setenv("AUDIOGRAB_NTFY_TOPIC", "https://ntfy.example.com/grab")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIToken != "secret" {
		t.Fatalf("expected token from env, got %q", cfg.Server.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example.com/grab" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[server]") {
		t.Fatalf("sample config missing server section: %s", contents)
	}

	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to be found")
	}
	if !strings.Contains(cfg.Paths.OutputDir, "audiograb") {
		t.Fatalf("expected output dir to contain audiograb, got %q", cfg.Paths.OutputDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad bind", func(c *config.Config) { c.Server.Bind = "localhost" }},
		{"root prefix", func(c *config.Config) { c.Server.PublicPrefix = "/" }},
		{"zero concurrency", func(c *config.Config) { c.Server.MaxConcurrent = 0 }},
		{"zero body limit", func(c *config.Config) { c.Server.MaxBodyBytes = 0 }},
		{"bad origin", func(c *config.Config) { c.Server.CORSOrigins = []string{"example.com"} }},
		{"unknown provider", func(c *config.Config) { c.Source.Provider = "vimeo" }},
		{"ytdlp without hosts", func(c *config.Config) {
			c.Source.Provider = config.ProviderYTDLP
			c.Source.AllowedHosts = nil
		}},
		{"bad bitrate", func(c *config.Config) { c.FFmpeg.AudioBitrate = "loud" }},
		{"tiny thumbnail", func(c *config.Config) { c.Thumbnail.MaxDimension = 10 }},
		{"zero transcode timeout", func(c *config.Config) { c.Timeouts.Transcode = 0 }},
		{"request shorter than resolve", func(c *config.Config) { c.Timeouts.Request = 1 }},
		{"same work and output", func(c *config.Config) { c.Paths.WorkDir = c.Paths.OutputDir }},
		{"work age within request timeout", func(c *config.Config) {
			c.Timeouts.Request = 900
			c.Retention.WorkMaxAgeMinutes = 15
		}},
		{"negative output age", func(c *config.Config) { c.Retention.OutputMaxAgeHours = -1 }},
		{"relative ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Thumbnail.Enabled = false
	cfg.Thumbnail.MaxDimension = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled thumbnails should skip dimension checks: %v", err)
	}
}
