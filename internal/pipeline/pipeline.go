package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"audiograb/internal/artifacts"
	"audiograb/internal/config"
	"audiograb/internal/logging"
	"audiograb/internal/media/ffmpeg"
	"audiograb/internal/notifications"
	"audiograb/internal/source"
	"audiograb/internal/textutil"
	"audiograb/internal/thumbnail"
)

// Workspace file names.
const (
	sourceName     = "source"
	coverName      = "cover.jpg"
	transcodedName = "transcoded.mp3"
	finalName      = "final.mp3"
)

// Request selects what the published file contains.
type Request struct {
	URL          string
	WithArtwork  bool
	PopulateTags bool
}

// Variant labels the request for logs and metrics.
func (r Request) Variant() string {
	switch {
	case r.PopulateTags:
		return "detail"
	case r.WithArtwork:
		return "artwork"
	default:
		return "audio"
	}
}

// Result describes a published file.
type Result struct {
	Token    string
	Title    string
	Path     string
	FileName string
	Bytes    int64
	HasCover bool
	Tags     ffmpeg.Tags
	Elapsed  time.Duration
}

// ThumbnailFetcher stores cover art at dest, best effort.
type ThumbnailFetcher interface {
	TryFetch(ctx context.Context, url, dest string) (string, bool)
}

// Transcoder converts downloaded audio to a tagless MP3.
type Transcoder interface {
	Transcode(ctx context.Context, input, output string) error
}

// Muxer attaches cover art and tags.
type Muxer interface {
	Mux(ctx context.Context, in ffmpeg.MuxInput) error
}

// Dependencies are the collaborators a Service drives. Verifier and Notifier
// may be nil.
type Dependencies struct {
	Fetcher    source.Fetcher
	Thumbnails ThumbnailFetcher
	Transcoder Transcoder
	Muxer      Muxer
	Verifier   Verifier
	Notifier   notifications.Service
	Metrics    *Metrics
	NewToken   func() string
}

// Service runs download requests. It is safe for concurrent use.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Dependencies
}

// NewService wires a Service from explicit dependencies.
func NewService(cfg *config.Config, logger *slog.Logger, deps Dependencies) *Service {
	if deps.NewToken == nil {
		deps.NewToken = uuid.NewString
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(&config.Config{})
	}
	return &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		deps:   deps,
	}
}

// New builds a Service backed by the real providers and ffmpeg. runner and
// httpClient may be nil; reg may be nil to skip metric registration.
func New(cfg *config.Config, logger *slog.Logger, runner ffmpeg.CommandRunner, httpClient *http.Client, reg prometheus.Registerer) (*Service, error) {
	if runner == nil {
		runner = ffmpeg.ExecRunner{}
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	fetcher, err := source.New(cfg, runner, httpClient)
	if err != nil {
		return nil, err
	}
	deps := Dependencies{
		Fetcher:    fetcher,
		Thumbnails: thumbnail.NewFetcher(httpClient, thumbnail.OptionsFromConfig(cfg), logger),
		Transcoder: ffmpeg.NewTranscoder(cfg.FFmpeg.FFmpegBinary, cfg.FFmpeg.AudioBitrate, runner),
		Muxer:      ffmpeg.NewMuxer(cfg.FFmpeg.FFmpegBinary, runner),
		Notifier:   notifications.NewService(cfg),
		Metrics:    NewMetrics(reg),
	}
	if cfg.Pipeline.VerifyOutput {
		deps.Verifier = OutputVerifier{
			FFprobeBinary: cfg.FFmpeg.FFprobeBinary,
			Runner:        runner,
			Timeout:       config.Timeout(cfg.Timeouts.Probe),
		}
	}
	return NewService(cfg, logger, deps), nil
}

// Validate checks rawURL without side effects.
func (s *Service) Validate(rawURL string) error {
	if err := s.deps.Fetcher.Validate(rawURL); err != nil {
		return &Error{Kind: KindInput, Op: "validate", Err: err}
	}
	return nil
}

// Run executes req and returns the published file.
func (s *Service) Run(ctx context.Context, req Request) (result Result, err error) {
	token := s.deps.NewToken()
	ctx = logging.WithRequestID(ctx, token)
	logger := logging.WithContext(ctx, s.logger).With(logging.Variant(req.Variant()))
	start := time.Now()

	defer func() {
		s.deps.Metrics.observeRun(req.Variant(), err)
		s.finish(ctx, logger, req, result, err, time.Since(start))
	}()

	if err := s.Validate(req.URL); err != nil {
		return Result{}, err
	}

	ws, err := artifacts.NewWorkspace(s.cfg.Paths.WorkDir, token)
	if err != nil {
		return Result{}, &Error{Kind: KindFilesystem, Op: "workspace", Err: err}
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_cleanup_failed",
				logging.Error(closeErr),
				logging.Hint("check work_dir permissions"),
				logging.Impact("temporary files remain until the next sweep"),
			)
		}
	}()

	meta, download, cover, err := s.fetch(ctx, logger, ws, req)
	if err != nil {
		return Result{}, err
	}
	if req.WithArtwork && cover == "" {
		s.deps.Metrics.thumbnailFallback()
	}

	transcoded := ws.Path(transcodedName)
	if err := s.step(ctx, logger, "transcode", s.cfg.Timeouts.Transcode, func(stepCtx context.Context) error {
		return s.deps.Transcoder.Transcode(stepCtx, download.Path, transcoded)
	}); err != nil {
		return Result{}, classify(ctx, KindTranscode, "transcode", err)
	}

	tags := buildTags(s.cfg, meta, req)
	final := transcoded
	if cover != "" || req.PopulateTags {
		final = ws.Path(finalName)
		in := ffmpeg.MuxInput{Audio: transcoded, Cover: cover, Output: final, Tags: tags}
		if err := s.step(ctx, logger, "mux", s.cfg.Timeouts.Mux, func(stepCtx context.Context) error {
			return s.deps.Muxer.Mux(stepCtx, in)
		}); err != nil {
			return Result{}, classify(ctx, KindMux, "mux", err)
		}
	}

	if s.deps.Verifier != nil && s.cfg.Pipeline.VerifyOutput {
		expect := Expectation{Cover: cover != ""}
		if req.PopulateTags {
			expect.Title = textutil.EscapeTagValue(tags.Title)
		}
		if err := s.step(ctx, logger, "verify", 0, func(stepCtx context.Context) error {
			return s.deps.Verifier.Verify(stepCtx, final, expect)
		}); err != nil {
			return Result{}, classify(ctx, KindVerify, "verify", err)
		}
	}

	name := textutil.SafeName(meta.Title, "track-"+artifacts.ShortToken(token))
	var published string
	if err := s.step(ctx, logger, "publish", 0, func(context.Context) error {
		var publishErr error
		published, publishErr = artifacts.Publish(final, s.cfg.Paths.OutputDir, name, token)
		return publishErr
	}); err != nil {
		return Result{}, classify(ctx, KindFilesystem, "publish", err)
	}

	return Result{
		Token:    token,
		Title:    meta.Title,
		Path:     published,
		FileName: filepath.Base(published),
		Bytes:    fileSize(published),
		HasCover: cover != "",
		Tags:     tags,
		Elapsed:  time.Since(start),
	}, nil
}

// fetch resolves metadata and downloads audio while the thumbnail, when
// requested, is fetched as soon as metadata is known. Thumbnail problems never
// fail the group.
func (s *Service) fetch(ctx context.Context, logger *slog.Logger, ws *artifacts.Workspace, req Request) (source.Metadata, source.Download, string, error) {
	var (
		meta     source.Metadata
		download source.Download
		cover    string
	)
	metaReady := make(chan source.Metadata, 1)
	wantCover := req.WithArtwork && s.cfg.Thumbnail.Enabled && s.deps.Thumbnails != nil

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(metaReady)
		if err := s.step(gctx, logger, "resolve", s.cfg.Timeouts.Resolve, func(stepCtx context.Context) error {
			var resolveErr error
			meta, resolveErr = s.deps.Fetcher.Resolve(stepCtx, req.URL)
			return resolveErr
		}); err != nil {
			return classify(ctx, KindFetch, "resolve", err)
		}
		metaReady <- meta
		logger.Info("metadata resolved",
			logging.String("title", meta.Title),
			logging.String("author", meta.Author),
			logging.Duration("media_duration", meta.Duration),
		)

		if err := s.step(gctx, logger, "download", s.cfg.Timeouts.Download, func(stepCtx context.Context) error {
			var downloadErr error
			download, downloadErr = s.deps.Fetcher.DownloadAudio(stepCtx, req.URL, meta, ws.Path(sourceName))
			return downloadErr
		}); err != nil {
			return classify(ctx, KindFetch, "download", err)
		}
		return nil
	})

	if wantCover {
		g.Go(func() error {
			resolved, ok := <-metaReady
			if !ok {
				return nil
			}
			best, ok := resolved.BestThumbnail()
			if !ok {
				logger.Info("no thumbnail candidates; continuing without artwork")
				return nil
			}
			begin := time.Now()
			if path, ok := s.deps.Thumbnails.TryFetch(gctx, best.URL, ws.Path(coverName)); ok {
				cover = path
			}
			s.deps.Metrics.observeStep("thumbnail", time.Since(begin))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return source.Metadata{}, source.Download{}, "", err
	}
	return meta, download, cover, nil
}

// step runs fn under an optional timeout and records its duration.
func (s *Service) step(ctx context.Context, logger *slog.Logger, name string, timeoutSeconds int, fn func(context.Context) error) error {
	stepCtx := ctx
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, config.Timeout(timeoutSeconds))
		defer cancel()
	}
	begin := time.Now()
	err := fn(stepCtx)
	elapsed := time.Since(begin)
	s.deps.Metrics.observeStep(name, elapsed)
	if err == nil {
		logger.Debug("step completed", logging.Step(name), logging.Duration("elapsed", elapsed))
	}
	return err
}

func (s *Service) finish(ctx context.Context, logger *slog.Logger, req Request, result Result, err error, elapsed time.Duration) {
	notifyCtx := context.WithoutCancel(ctx)
	if err == nil {
		logger.Info("download published",
			logging.String("file", result.FileName),
			logging.Int64("bytes", result.Bytes),
			logging.Bool("cover", result.HasCover),
			logging.Duration("elapsed", elapsed),
			logging.Event("download_published"),
		)
		s.notify(notifyCtx, logger, notifications.EventDownloadCompleted, notifications.Payload{
			"title":   result.Title,
			"file":    result.FileName,
			"variant": req.Variant(),
		})
		return
	}

	kind := KindOf(err)
	op := ""
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		op = pipelineErr.Op
	}
	switch kind {
	case KindInput:
		logger.Info("request rejected", logging.String("reason", err.Error()), logging.Event("request_rejected"))
	case KindCanceled:
		logger.Info("request canceled", logging.Step(op), logging.Int("status", StatusClientClosedRequest))
	default:
		logging.ErrorWithContext(logger, "download failed", "download_failed",
			logging.Step(op),
			logging.String("kind", kind.String()),
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
			logging.Hint(hintFor(kind)),
		)
		s.notify(notifyCtx, logger, notifications.EventError, notifications.Payload{
			"context": op,
			"error":   strings.TrimSpace(err.Error()),
		})
	}
}

func (s *Service) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := s.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.Hint("check notifications.ntfy_topic"),
			logging.Impact("operator not notified"),
		)
	}
}

func hintFor(kind Kind) string {
	switch kind {
	case KindFetch:
		return "check the source URL, provider availability and network access"
	case KindTranscode, KindMux:
		return "check the ffmpeg binary and the stderr tail in this log line"
	case KindVerify:
		return "inspect ffprobe output for the muxed file"
	case KindFilesystem:
		return "check output_dir and work_dir permissions and free space"
	default:
		return "check logs for details"
	}
}

func buildTags(cfg *config.Config, meta source.Metadata, req Request) ffmpeg.Tags {
	if !req.PopulateTags {
		return ffmpeg.Tags{}
	}
	return ffmpeg.Tags{
		Title:   meta.Title,
		Artist:  meta.Author,
		Album:   meta.Author,
		Genre:   cfg.Tags.Genre,
		Comment: strings.TrimSpace(req.URL),
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
