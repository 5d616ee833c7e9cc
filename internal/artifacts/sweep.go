package artifacts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audiograb/internal/logging"
)

// SweepResult contains the outcome of a sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

func (r *SweepResult) merge(other SweepResult) {
	r.Removed = append(r.Removed, other.Removed...)
	r.Errors = append(r.Errors, other.Errors...)
}

// SweepWorkspaces removes workspace directories older than maxAge. Live
// requests refresh nothing, so maxAge must exceed the longest request
// (config validation enforces this against timeouts.request).
func SweepWorkspaces(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	return sweep(ctx, workDir, maxAge, logger, "workspace", func(entry os.DirEntry) bool {
		return entry.IsDir()
	})
}

// SweepOutputs removes published MP3 files older than maxAge. A maxAge of
// zero keeps outputs forever.
func SweepOutputs(ctx context.Context, outputDir string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	if maxAge <= 0 {
		return SweepResult{}
	}
	return sweep(ctx, outputDir, maxAge, logger, "output", func(entry os.DirEntry) bool {
		return entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), Extension)
	})
}

// SweepAll runs both sweeps.
func SweepAll(ctx context.Context, workDir, outputDir string, workMaxAge, outputMaxAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepWorkspaces(ctx, workDir, workMaxAge, logger)
	result.merge(SweepOutputs(ctx, outputDir, outputMaxAge, logger))
	return result
}

func sweep(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger, kind string, match func(os.DirEntry) bool) SweepResult {
	result := SweepResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" || maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !match(entry) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale "+kind, "sweep_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.Hint("check directory permissions"),
				logging.Impact("disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale "+kind,
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.Event("sweep_removed"),
			)
		}
	}
	return result
}
