package config

const (
	defaultOutputDir            = "~/.local/share/audiograb/downloads"
	defaultWorkDir              = "~/.local/share/audiograb/work"
	defaultLogDir               = "~/.local/share/audiograb/logs"
	defaultBind                 = "127.0.0.1:5000"
	defaultPublicPrefix         = "/downloads/"
	defaultMaxBodyBytes         = 8 << 10
	defaultMaxConcurrent        = 4
	defaultRateLimitPerMinute   = 30
	defaultRateLimitBurst       = 5
	defaultProvider             = ProviderYouTube
	defaultYTDLPBinary          = "yt-dlp"
	defaultUserAgent            = "audiograb/0.1"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultAudioBitrate         = "192k"
	defaultThumbnailDimension   = 600
	defaultThumbnailMaxBytes    = 5 << 20
	defaultGenre                = "YouTube"
	defaultResolveTimeout       = 30
	defaultDownloadTimeout      = 300
	defaultThumbnailTimeout     = 15
	defaultTranscodeTimeout     = 300
	defaultMuxTimeout           = 120
	defaultProbeTimeout         = 30
	defaultRequestTimeout       = 600
	defaultWorkMaxAgeMinutes    = 60
	defaultOutputMaxAgeHours    = 0
	defaultSweepIntervalMinutes = 15
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Supported media providers.
const (
	ProviderYouTube = "youtube"
	ProviderYTDLP   = "ytdlp"
)

var defaultAllowedHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"m.youtube.com",
	"music.youtube.com",
	"youtu.be",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Server: Server{
			Bind:               defaultBind,
			PublicPrefix:       defaultPublicPrefix,
			MaxBodyBytes:       defaultMaxBodyBytes,
			MaxConcurrent:      defaultMaxConcurrent,
			RateLimitPerMinute: defaultRateLimitPerMinute,
			RateLimitBurst:     defaultRateLimitBurst,
			Metrics:            true,
		},
		Source: Source{
			Provider:     defaultProvider,
			YTDLPBinary:  defaultYTDLPBinary,
			AllowedHosts: append([]string(nil), defaultAllowedHosts...),
			UserAgent:    defaultUserAgent,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			AudioBitrate:  defaultAudioBitrate,
		},
		Thumbnail: Thumbnail{
			Enabled:      true,
			MaxDimension: defaultThumbnailDimension,
			MaxBytes:     defaultThumbnailMaxBytes,
			SquareCrop:   true,
		},
		Tags: Tags{
			Genre: defaultGenre,
		},
		Timeouts: Timeouts{
			Resolve:   defaultResolveTimeout,
			Download:  defaultDownloadTimeout,
			Thumbnail: defaultThumbnailTimeout,
			Transcode: defaultTranscodeTimeout,
			Mux:       defaultMuxTimeout,
			Probe:     defaultProbeTimeout,
			Request:   defaultRequestTimeout,
		},
		Retention: Retention{
			WorkMaxAgeMinutes:    defaultWorkMaxAgeMinutes,
			OutputMaxAgeHours:    defaultOutputMaxAgeHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
		},
		Pipeline: Pipeline{
			VerifyOutput: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			OnFailure:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
