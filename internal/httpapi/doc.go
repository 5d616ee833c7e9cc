// Package httpapi exposes the download pipeline over HTTP.
//
// Three POST endpoints share one handler parameterized by the pipeline
// request variant. Published files are served read-only under the configured
// public prefix. The server also answers /healthz and, when enabled, /metrics.
// Bearer auth, per-client rate limiting, body size limits, CORS and a
// concurrency cap guard the POST endpoints.
package httpapi
