// Package pipeline turns a media URL into a published MP3.
//
// Service.Run validates the URL, opens a per-request workspace, resolves
// metadata and downloads audio while the cover thumbnail is fetched in
// parallel, transcodes, muxes cover art and tags, verifies the result and
// publishes it under a collision-free name. The workspace is removed on every
// exit path, so a request leaves either exactly one file in the output
// directory or none at all.
//
// Failures are returned as *Error whose Kind tells the HTTP layer which status
// to send; internal detail stays in Err and in the logs.
package pipeline
