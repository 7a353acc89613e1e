// Package server is the HTTP surface of the rendering core. A request to
// /<user> is translated into a canonical request, rendered, and the HTTP
// status reports the outcome.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-cardgen/pkg/config"
	"github.com/goliatone/go-cardgen/pkg/logger"
	"github.com/goliatone/go-cardgen/pkg/openapi"
	"github.com/goliatone/go-cardgen/pkg/options"
	"github.com/goliatone/go-cardgen/pkg/render"
)

// ShutdownTimeout bounds graceful shutdown once the run context ends.
const ShutdownTimeout = 5 * time.Second

// Capabilities lists the plugins and templates advertised by /openapi.json.
type Capabilities = openapi.Capabilities

// Server serves cards over HTTP.
type Server struct {
	engine   *render.Engine
	caps     Capabilities
	cfg      config.ServerConfig
	logger   logger.Logger
	metrics  *Metrics
	version  string
	source   func(name string) ([]byte, error)
	defaults options.Raw

	router *gin.Engine
	doc    *openapi3.T
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets listener, timeout and rate limit settings.
func WithConfig(cfg config.ServerConfig) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics exposes m on /metrics and counts requests through it. The
// same value should be passed to render.WithObserver.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithVersion sets the version reported by the liveness probe and used as
// the default card version.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithDefaults sets inputs applied when a request does not carry them.
func WithDefaults(defaults options.Raw) Option {
	return func(s *Server) {
		s.defaults = defaults
	}
}

// WithTemplateSource sets the lookup behind /.templates/:name.
func WithTemplateSource(fn func(name string) ([]byte, error)) Option {
	return func(s *Server) {
		s.source = fn
	}
}

// New builds the router. caps is usually the capability registry the
// engine was built with.
func New(engine *render.Engine, caps Capabilities, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if caps == nil {
		return nil, errors.New("server: capabilities are required")
	}
	s := &Server{
		engine:  engine,
		caps:    caps,
		cfg:     config.Default().Server,
		logger:  logger.Nop(),
		version: "dev",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	doc, err := openapi.Describe(context.Background(), caps, openapi.WithVersion(s.version))
	if err != nil {
		return nil, fmt.Errorf("server: describe: %w", err)
	}
	s.doc = doc

	router, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.router = router
	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run listens on Addr and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down within
// ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String(), "version", s.version)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err, ok := <-errCh; ok {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}
