// Package api serves captures, graphs, images and detail tables over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-trafficgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-trafficgraph/pkg/graphql"
	"github.com/dd0wney/cluso-trafficgraph/pkg/health"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/metrics"
)

// MaxBodyBytes bounds POST bodies (inline record lists).
const MaxBodyBytes = 16 << 20

// Server is the HTTP API server.
type Server struct {
	service        *Service
	graphqlHandler http.Handler
	health         *health.HealthChecker
	logger         logging.Logger
	metrics        *metrics.Registry
	cors           *middleware.CORSConfig
	startTime      time.Time
	version        string

	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithTimeouts sets the HTTP read, write and shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) Option {
	return func(s *Server) {
		s.readTimeout, s.writeTimeout, s.shutdownTimeout = read, write, shutdown
	}
}

// WithCORS sets the allowed cross-origin callers.
func WithCORS(cfg *middleware.CORSConfig) Option {
	return func(s *Server) { s.cors = cfg }
}

// NewServer creates a server over svc. Options are applied before the
// GraphQL schema is built.
func NewServer(svc *Service, opts ...Option) (*Server, error) {
	s := &Server{
		service:         svc,
		logger:          logging.NewNopLogger(),
		startTime:       time.Now(),
		version:         "1.0.0",
		addr:            ":8080",
		readTimeout:     15 * time.Second,
		writeTimeout:    30 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cors == nil {
		s.cors = CORSFromEnv(s.logger)
	}

	schema, err := graphql.NewSchema(svc)
	if err != nil {
		return nil, err
	}
	s.graphqlHandler = graphql.NewHandler(schema, graphql.WithLogger(s.logger))

	s.health = health.NewHealthChecker()
	s.health.RegisterLivenessCheck("memory", health.MemoryCheck(0))
	s.health.RegisterReadinessCheck("catalog", health.CatalogCheck(svc.catalog.Len))
	return s, nil
}

// Service returns the request-independent graph service.
func (s *Server) Service() *Service {
	return s.service
}

// Routes returns the mux with every endpoint registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /pcaps", s.handlePcaps)
	mux.HandleFunc("GET /pcaps/{id}", s.handlePcap)
	mux.HandleFunc("GET /pcaps/{id}/graph", s.handlePcapGraph)
	mux.HandleFunc("GET /pcaps/{id}/graph.png", s.handlePcapImage)
	mux.HandleFunc("GET /pcaps/{id}/hit", s.handleHit)
	mux.HandleFunc("GET /pcaps/{id}/table", s.handleTable)

	mux.HandleFunc("POST /graph", s.handleGraph)
	mux.Handle("/graphql", s.graphqlHandler)

	return mux
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Routes()
	if s.metrics != nil {
		h = middleware.Metrics(s.metrics)(h)
	}
	h = middleware.BodySizeLimit(MaxBodyBytes)(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.CORS(s.cors)(h)
	h = middleware.RequestID()(h)
	return middleware.PanicRecovery(s.logger)(h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	if s.metrics != nil {
		go s.updateMetricsPeriodically(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", logging.String("addr", s.addr), logging.String("version", s.version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info("api server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	s.metrics.UpdateSystemMetrics(s.startTime)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.UpdateSystemMetrics(s.startTime)
		}
	}
}

// CORSFromEnv reads CORS_ALLOWED_ORIGINS, a comma-separated origin list.
// Unset means no cross-origin access.
func CORSFromEnv(logger logging.Logger) *middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	env := os.Getenv("CORS_ALLOWED_ORIGINS")
	if env == "" {
		return cfg
	}
	for _, o := range strings.Split(env, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	if logger != nil {
		logger.Info("cors configured", logging.Int("origins", len(cfg.AllowedOrigins)))
	}
	return cfg
}
