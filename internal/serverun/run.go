package serverun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"audiograb/internal/config"
	"audiograb/internal/deps"
	"audiograb/internal/httpapi"
	"audiograb/internal/logging"
	"audiograb/internal/media/ffmpeg"
	"audiograb/internal/pipeline"
	"audiograb/internal/preflight"
)

// LockFileName guards the work directory against a second server instance.
const LockFileName = "audiograb.lock"

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another audiograb server is already running")

// Options configures server process runtime behavior.
type Options struct {
	LogLevel string
	Bind     string
	// Ready, if set, receives the listen address once the server accepts connections.
	Ready func(addr string)
}

// Run starts the HTTP service and blocks until cmdCtx is canceled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		cfg.Server.Bind = bind
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, logPath, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", logging.Error(err))
		}
		_ = os.Remove(lock.Path())
	}()

	if err := runPreflight(signalCtx, cfg, logger); err != nil {
		return err
	}
	logDependencySnapshot(signalCtx, logger, cfg)
	pruneLogs(logger, cfg, logPath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := pipeline.New(cfg, logger, ffmpeg.ExecRunner{}, &http.Client{}, registry)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	server, err := httpapi.New(cfg, logger, svc, httpapi.Options{Registry: registry})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	if err := server.Start(signalCtx); err != nil {
		return err
	}
	if opts.Ready != nil {
		opts.Ready(server.Addr())
	}

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		runSweeper(signalCtx, cfg, logger, logPath)
	}()

	logger.Info("audiograb server started",
		logging.String("address", server.Addr()),
		logging.String("lock", lock.Path()),
		logging.String("log_path", logPath),
		logging.Event("server_started"),
	)

	<-signalCtx.Done()
	logger.Info("audiograb server shutting down")
	server.Stop()
	<-sweeperDone
	return nil
}

// runPreflight fails startup when a configured directory is unusable. Other
// failed checks are logged.
func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var fatal []string
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		if strings.HasSuffix(result.Name, "directory") {
			fatal = append(fatal, result.Name+": "+result.Detail)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.Hint("review the notifications configuration"),
			logging.Impact("operator notifications may be lost"),
		)
	}
	if len(fatal) > 0 {
		return fmt.Errorf("preflight: %s", strings.Join(fatal, "; "))
	}
	return nil
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	statuses := preflight.CheckSystemDeps(cfg)
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		logging.WarnWithContext(logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.String("detail", status.Detail),
			logging.Hint("install the binary or set its path in the config"),
			logging.Impact("download requests will fail"),
		)
	}

	encoder := deps.CheckEncoder(ctx, ffmpeg.ExecRunner{}, cfg.FFmpeg.FFmpegBinary, deps.MP3Encoder)
	attrs := []logging.Attr{
		logging.Event("dependency_snapshot"),
		logging.String("provider", cfg.Source.Provider),
		logging.Bool("dependencies_healthy", deps.Healthy(statuses)),
		logging.Bool("mp3_encoder", encoder.Available),
		logging.Bool("verify_output", cfg.Pipeline.VerifyOutput),
		logging.Bool("thumbnails", cfg.Thumbnail.Enabled),
		logging.Bool("auth", cfg.Server.APIToken != ""),
	}
	for _, status := range statuses {
		attrs = append(attrs, logging.String(strings.ToLower(status.Name)+"_path", status.Path))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
