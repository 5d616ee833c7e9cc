package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"audiograb/internal/config"
	"audiograb/internal/deps"
	"audiograb/internal/logging"
	"audiograb/internal/pipeline"
	"audiograb/internal/preflight"
)

const shutdownTimeout = 5 * time.Second

// Runner executes pipeline requests.
type Runner interface {
	Validate(rawURL string) error
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// HealthFunc reports external dependency status.
type HealthFunc func(ctx context.Context) []deps.Status

// Options customize a Server. All fields are optional.
type Options struct {
	// Registry backs /metrics and the HTTP request counters.
	Registry *prometheus.Registry
	Health   HealthFunc
}

// Server is the HTTP front end.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	runner  Runner
	health  HealthFunc
	limiter *clientLimiter
	slots   chan struct{}
	metrics *httpMetrics
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

// New builds a Server around runner.
func New(cfg *config.Config, logger *slog.Logger, runner Runner, opts Options) (*Server, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("httpapi: config and runner are required")
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	health := opts.Health
	if health == nil {
		health = func(context.Context) []deps.Status {
			return preflight.CheckSystemDeps(cfg)
		}
	}
	concurrent := cfg.Server.MaxConcurrent
	if concurrent <= 0 {
		concurrent = 1
	}

	s := &Server{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "http"),
		runner:  runner,
		health:  health,
		limiter: newClientLimiter(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst),
		slots:   make(chan struct{}, concurrent),
		metrics: newHTTPMetrics(registry),
	}

	mux := http.NewServeMux()
	s.route(mux, "/download", "download", s.handleDownload(pipeline.Request{}))
	s.route(mux, "/download-image", "download_image", s.handleDownload(pipeline.Request{WithArtwork: true}))
	s.route(mux, "/download-image-detail", "download_image_detail", s.handleDownload(pipeline.Request{WithArtwork: true, PopulateTags: true}))
	mux.Handle(publicPrefix(cfg), s.metrics.instrument("files", s.cors(http.HandlerFunc(s.handleFile))))
	mux.Handle("/healthz", s.metrics.instrument("healthz", http.HandlerFunc(s.handleHealth)))
	if cfg.Server.Metrics {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	s.handler = s.accessLog(mux)

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	return s, nil
}

// route mounts a POST pipeline endpoint behind the middleware chain.
func (s *Server) route(mux *http.ServeMux, path, name string, h http.HandlerFunc) {
	guarded := s.requirePOST(authMiddleware(s.cfg.Server.APIToken, s.rateLimit(h)))
	mux.Handle(path, s.metrics.instrument(name, s.cors(guarded)))
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured bind address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Server.Bind)
	if bind == "" {
		return errors.New("httpapi: empty bind address")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "server_error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.WarnWithContext(s.logger, "api server shutdown incomplete", "server_shutdown",
			logging.Error(err),
			logging.Impact("in-flight requests were interrupted"),
		)
	}
}

func publicPrefix(cfg *config.Config) string {
	prefix := strings.TrimSpace(cfg.Server.PublicPrefix)
	if prefix == "" {
		prefix = "/downloads/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
