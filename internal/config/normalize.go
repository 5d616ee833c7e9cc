package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeSource()
	c.normalizeFFmpeg()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.Tags.Genre = strings.TrimSpace(c.Tags.Genre)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("AUDIOGRAB_API_TOKEN"); ok {
			c.Server.APIToken = value
		}
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)

	prefix := strings.TrimSpace(c.Server.PublicPrefix)
	if prefix == "" {
		prefix = defaultPublicPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	c.Server.PublicPrefix = prefix

	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.CORSOrigins = origins
}

func (c *Config) normalizeSource() {
	c.Source.Provider = strings.ToLower(strings.TrimSpace(c.Source.Provider))
	if c.Source.Provider == "" {
		c.Source.Provider = defaultProvider
	}
	c.Source.Provider = strings.ReplaceAll(c.Source.Provider, "-", "")
	c.Source.YTDLPBinary = strings.TrimSpace(c.Source.YTDLPBinary)
	if c.Source.YTDLPBinary == "" {
		c.Source.YTDLPBinary = defaultYTDLPBinary
	}
	hosts := make([]string, 0, len(c.Source.AllowedHosts))
	for _, host := range c.Source.AllowedHosts {
		if trimmed := strings.ToLower(strings.TrimSpace(host)); trimmed != "" {
			hosts = append(hosts, trimmed)
		}
	}
	c.Source.AllowedHosts = hosts
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	c.FFmpeg.AudioBitrate = strings.ToLower(strings.TrimSpace(c.FFmpeg.AudioBitrate))
	if c.FFmpeg.AudioBitrate == "" {
		c.FFmpeg.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("AUDIOGRAB_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
