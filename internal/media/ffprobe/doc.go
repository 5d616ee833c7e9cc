// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns a Result whose helpers answer the questions
// output verification asks: how many audio streams, whether a cover is
// attached, the container duration and the tags ffmpeg wrote.
package ffprobe
