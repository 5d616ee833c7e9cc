package serverun

import (
	"context"
	"log/slog"
	"time"

	"audiograb/internal/artifacts"
	"audiograb/internal/config"
	"audiograb/internal/logging"
)

// Sweep removes stale workspaces and expired outputs once.
func Sweep(ctx context.Context, cfg *config.Config, logger *slog.Logger) artifacts.SweepResult {
	logger = logging.NewComponentLogger(logger, "sweeper")
	result := artifacts.SweepAll(ctx, cfg.Paths.WorkDir, cfg.Paths.OutputDir, cfg.WorkMaxAge(), cfg.OutputMaxAge(), logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		logger.Info("sweep finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.Event("sweep_finished"),
		)
	}
	return result
}

// runSweeper sweeps at startup and then on every interval until ctx is done.
func runSweeper(ctx context.Context, cfg *config.Config, logger *slog.Logger, logPath string) {
	Sweep(ctx, cfg, logger)

	interval := cfg.SweepInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Sweep(ctx, cfg, logger)
			pruneLogs(logger, cfg, logPath)
		}
	}
}

func pruneLogs(logger *slog.Logger, cfg *config.Config, current string) {
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "audiograb-*.log",
		Exclude: []string{current},
	})
}
