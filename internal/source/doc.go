// Package source resolves media metadata and downloads the best available
// audio stream.
//
// Two providers implement Fetcher: YouTube, built on the kkdai/youtube client,
// and YTDLP, which drives the yt-dlp binary. Provider failures are reported as
// wrapped ErrInvalidURL, ErrRestricted or ErrUnavailable so callers can map
// them without inspecting provider-specific types.
package source
