// Package ffmpeg wraps the two ffmpeg invocations audiograb performs: the
// audio-only transcode to MP3 and the final mux that attaches cover art and
// writes ID3 tags.
//
// Both steps run through a CommandRunner so tests can substitute a fake that
// records arguments and fabricates output files.
package ffmpeg
