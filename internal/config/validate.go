package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
)

var bitratePattern = regexp.MustCompile(`^[0-9]{2,3}k$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateThumbnail(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.OutputDir == c.Paths.WorkDir {
		return errors.New("paths.work_dir must differ from paths.output_dir")
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	if c.Server.PublicPrefix == "/" {
		return errors.New("server.public_prefix must not be the root path")
	}
	if err := ensurePositiveMap(map[string]int{
		"server.max_concurrent":        c.Server.MaxConcurrent,
		"server.rate_limit_per_minute": c.Server.RateLimitPerMinute,
		"server.rate_limit_burst":      c.Server.RateLimitBurst,
	}); err != nil {
		return err
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("server.cors_origins entry %q must be an origin like https://example.com", origin)
		}
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Provider {
	case ProviderYouTube:
	case ProviderYTDLP:
		if len(c.Source.AllowedHosts) == 0 {
			return errors.New("source.allowed_hosts must include at least one host when source.provider is ytdlp")
		}
	default:
		return fmt.Errorf("source.provider: unsupported value %q (expected %s or %s)", c.Source.Provider, ProviderYouTube, ProviderYTDLP)
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if !bitratePattern.MatchString(c.FFmpeg.AudioBitrate) {
		return fmt.Errorf("ffmpeg.audio_bitrate must look like 192k, got %q", c.FFmpeg.AudioBitrate)
	}
	return nil
}

func (c *Config) validateThumbnail() error {
	if !c.Thumbnail.Enabled {
		return nil
	}
	if c.Thumbnail.MaxDimension < 64 || c.Thumbnail.MaxDimension > 3000 {
		return errors.New("thumbnail.max_dimension must be between 64 and 3000")
	}
	if c.Thumbnail.MaxBytes <= 0 {
		return errors.New("thumbnail.max_bytes must be positive")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if err := ensurePositiveMap(map[string]int{
		"timeouts.resolve":   c.Timeouts.Resolve,
		"timeouts.download":  c.Timeouts.Download,
		"timeouts.thumbnail": c.Timeouts.Thumbnail,
		"timeouts.transcode": c.Timeouts.Transcode,
		"timeouts.mux":       c.Timeouts.Mux,
		"timeouts.probe":     c.Timeouts.Probe,
		"timeouts.request":   c.Timeouts.Request,
	}); err != nil {
		return err
	}
	if c.Timeouts.Request < c.Timeouts.Resolve {
		return errors.New("timeouts.request must be at least timeouts.resolve")
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.WorkMaxAgeMinutes <= 0 {
		return errors.New("retention.work_max_age_minutes must be positive")
	}
	// The sweeper must never reach a workspace whose request can still be running.
	if c.Retention.WorkMaxAgeMinutes*60 <= c.Timeouts.Request {
		return fmt.Errorf("retention.work_max_age_minutes (%d) must exceed timeouts.request (%ds)", c.Retention.WorkMaxAgeMinutes, c.Timeouts.Request)
	}
	if c.Retention.OutputMaxAgeHours < 0 {
		return errors.New("retention.output_max_age_hours must be >= 0")
	}
	if c.Retention.SweepIntervalMinutes <= 0 {
		return errors.New("retention.sweep_interval_minutes must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" {
		parsed, err := url.Parse(topic)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return errors.New("notifications.ntfy_topic must be a full URL such as https://ntfy.sh/my-topic")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
