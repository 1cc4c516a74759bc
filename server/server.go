package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/observability"
	"github.com/MrEdHardy/schleuben/server/endpoint"
	"github.com/MrEdHardy/schleuben/server/middleware"
)

// Paths served by every binary besides its domain routes.
const (
	PathHealth  = "/health"
	PathReady   = "/readyz"
	PathLive    = "/livez"
	PathVersion = "/version"
	PathMetrics = "/metrics"
	PathOpenAPI = "/openapi/v1.json"
)

var systemPaths = map[string]bool{
	PathHealth:  true,
	PathReady:   true,
	PathLive:    true,
	PathVersion: true,
	PathMetrics: true,
	PathOpenAPI: true,
}

// Option customises a Server.
type Option func(*Server)

// WithMetrics records request metrics on every gin route.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server is the gin-backed HTTP server shared by all services. It speaks
// HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	config     Config
	log        *logger.Logger
	metrics    *observability.Metrics

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server with the standard middleware installed. Routes are
// added through Engine.
func New(cfg Config, log *logger.Logger, opts ...Option) *Server {
	cfg.ApplyDefaults()
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: gin.New(),
		mux:    http.NewServeMux(),
		config: cfg,
		log:    log.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(middleware.ErrorHandler(log))
	if s.metrics != nil {
		s.engine.Use(middleware.Metrics(s.metrics))
	}
	if cfg.RateLimit.Enabled {
		s.engine.Use(middleware.RateLimit(cfg.RateLimit))
	}
	s.mux.Handle("/", s.engine)

	chain := middleware.Chain(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.BodySizeLimit(cfg.MaxBodySize),
	)
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(chain(s.mux), h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the full handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Handle mounts a plain http.Handler next to gin.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
	s.log.Debug("Handler mounted", logger.Fields("pattern", pattern))
}

// RegisterSystemEndpoints adds health, readiness, liveness, version and the
// capability document. metricsHandler is mounted at /metrics when non-nil.
func (s *Server) RegisterSystemEndpoints(serviceName, serviceVersion string, checker endpoint.HealthChecker, metricsHandler http.Handler) {
	s.engine.GET(PathHealth, endpoint.Health(serviceName, checker))
	s.engine.GET(PathReady, endpoint.Readiness(checker))
	s.engine.GET(PathLive, endpoint.Liveness())
	s.engine.GET(PathVersion, endpoint.Version(serviceName))
	if metricsHandler != nil {
		s.engine.GET(PathMetrics, endpoint.Metrics(metricsHandler))
	}
	s.engine.GET(PathOpenAPI, endpoint.OpenAPI(serviceName, serviceVersion, s.engine.Routes, systemPaths))
}

// Start binds the port and serves in the background. It returns once the
// listener is bound.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	tlsCfg, err := s.config.TLS.Build()
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("server: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	serve := s.httpServer.Serve
	if tlsCfg != nil {
		s.httpServer.TLSConfig = tlsCfg
		serve = func(l net.Listener) error { return s.httpServer.ServeTLS(l, "", "") }
	}
	go func() {
		if err := serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String(), "tls", tlsCfg != nil))
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
