package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
}

// Server contains HTTP listener and hardening settings.
type Server struct {
	Bind               string   `toml:"bind"`
	APIToken           string   `toml:"api_token"`
	PublicPrefix       string   `toml:"public_prefix"`
	MaxBodyBytes       int64    `toml:"max_body_bytes"`
	MaxConcurrent      int      `toml:"max_concurrent"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	RateLimitBurst     int      `toml:"rate_limit_burst"`
	CORSOrigins        []string `toml:"cors_origins"`
	Metrics            bool     `toml:"metrics"`
}

// Source selects and configures the media provider.
type Source struct {
	Provider     string   `toml:"provider"`
	YTDLPBinary  string   `toml:"ytdlp_binary"`
	AllowedHosts []string `toml:"allowed_hosts"`
	UserAgent    string   `toml:"user_agent"`
}

// FFmpeg contains transcoding tool settings.
type FFmpeg struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	AudioBitrate  string `toml:"audio_bitrate"`
}

// Thumbnail contains cover art settings.
type Thumbnail struct {
	Enabled      bool  `toml:"enabled"`
	MaxDimension int   `toml:"max_dimension"`
	MaxBytes     int64 `toml:"max_bytes"`
	SquareCrop   bool  `toml:"square_crop"`
}

// Tags contains values used when populating tags.
type Tags struct {
	Genre string `toml:"genre"`
}

// Timeouts holds per-step limits in seconds.
type Timeouts struct {
	Resolve   int `toml:"resolve"`
	Download  int `toml:"download"`
	Thumbnail int `toml:"thumbnail"`
	Transcode int `toml:"transcode"`
	Mux       int `toml:"mux"`
	Probe     int `toml:"probe"`
	Request   int `toml:"request"`
}

// Retention controls the workspace and output sweeper.
type Retention struct {
	WorkMaxAgeMinutes    int `toml:"work_max_age_minutes"`
	OutputMaxAgeHours    int `toml:"output_max_age_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// Pipeline contains orchestration toggles.
type Pipeline struct {
	VerifyOutput bool `toml:"verify_output"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnSuccess      bool   `toml:"on_success"`
	OnFailure      bool   `toml:"on_failure"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for audiograb.
//
// Configuration sections by subsystem:
//   - Paths: output, per-request workspace and log directories
//   - Server: bind address, auth token, request limits, CORS, metrics
//   - Source: media provider selection (youtube or yt-dlp)
//   - FFmpeg: transcoder binaries and bitrate
//   - Thumbnail: cover art fetch and normalization
//   - Tags: values written by the detail endpoint
//   - Timeouts: per-step deadlines
//   - Retention: stale workspace and output sweeping
//   - Pipeline: output verification toggle
//   - Notifications: ntfy push settings
//   - Logging: log format, level and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Source        Source        `toml:"source"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Thumbnail     Thumbnail     `toml:"thumbnail"`
	Tags          Tags          `toml:"tags"`
	Timeouts      Timeouts      `toml:"timeouts"`
	Retention     Retention     `toml:"retention"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/audiograb/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audiograb.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, work and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Timeout converts a configured number of seconds to a duration.
func Timeout(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// RequestTimeout returns the overall deadline applied to one pipeline run.
func (c *Config) RequestTimeout() time.Duration {
	return Timeout(c.Timeouts.Request)
}

// SweepInterval returns how often the retention sweeper runs.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalMinutes) * time.Minute
}

// WorkMaxAge returns the age after which a leftover workspace is removed.
func (c *Config) WorkMaxAge() time.Duration {
	return time.Duration(c.Retention.WorkMaxAgeMinutes) * time.Minute
}

// OutputMaxAge returns the age after which published files expire. Zero keeps them forever.
func (c *Config) OutputMaxAge() time.Duration {
	return time.Duration(c.Retention.OutputMaxAgeHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
