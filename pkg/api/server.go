// Package api serves the fabric analyses over HTTP. Every handler reads the
// snapshot current at request start, so a concurrent reload never mixes two
// fabrics in one answer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-fabric/pkg/api/middleware"
	"github.com/dd0wney/cluso-fabric/pkg/config"
	"github.com/dd0wney/cluso-fabric/pkg/graphql"
	"github.com/dd0wney/cluso-fabric/pkg/health"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/metrics"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

// DefaultVersion is reported when no version is set.
const DefaultVersion = "dev"

// metricsInterval is how often runtime gauges are sampled.
const metricsInterval = 10 * time.Second

// shutdownTimeout bounds graceful shutdown once the run context ends.
const shutdownTimeout = 15 * time.Second

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics sets the metrics registry. The default is
// metrics.DefaultRegistry.
func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Server) { s.metricsRegistry = registry }
}

// WithVersion sets the version reported by /health.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// NewServer creates a new API server over store
func NewServer(store *snapshot.Store, cfg config.Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	s := &Server{
		store:     store,
		cfg:       cfg,
		startTime: time.Now(),
		version:   DefaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("api"))
	if s.metricsRegistry == nil {
		s.metricsRegistry = metrics.DefaultRegistry()
	}

	schema, err := graphql.NewSchema(store, cfg.CapacityOptions())
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}
	s.graphqlHandler = graphql.NewHandler(schema, graphql.DefaultMaxDepth, s.logger)

	s.healthChecker = health.NewHealthChecker()
	s.registerHealthChecks()

	// A snapshot installed before the server existed still shows up in
	// the gauges.
	if snap, err := store.Current(); err == nil {
		s.metricsRegistry.UpdateFabricMetrics(fabricCounts(snap))
	}
	return s, nil
}

// routes registers every endpoint on a fresh mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("GET /health/ready", s.healthChecker.ReadinessHandler())
	mux.HandleFunc("GET /health/live", s.healthChecker.LivenessHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(
		s.metricsRegistry.GetPrometheusRegistry(),
		promhttp.HandlerOpts{Registry: s.metricsRegistry.GetPrometheusRegistry()},
	))

	mux.HandleFunc("GET /snapshot", s.handleGetSnapshot)
	mux.HandleFunc("POST /snapshot", s.handleLoadSnapshot)
	mux.HandleFunc("POST /snapshot/reload", s.handleReloadSnapshot)

	mux.HandleFunc("GET /ports", s.handlePorts)
	mux.HandleFunc("GET /ports/{wwpn}", s.handlePort)
	mux.HandleFunc("GET /connections", s.handleConnections)
	mux.HandleFunc("GET /islands", s.handleIslands)
	mux.HandleFunc("POST /path", s.handlePath)

	mux.HandleFunc("GET /oversubscription", s.handleOversubscription)
	mux.HandleFunc("GET /oversubscription/nodes", s.handleNodeOversubscription)
	mux.HandleFunc("GET /oversubscription/isl", s.handleISLOversubscription)

	mux.HandleFunc("GET /hosts", s.handleHosts)
	mux.HandleFunc("GET /hosts/{wwpn}/connectivity", s.handleHostConnectivity)

	mux.Handle("/graphql", s.graphqlHandler)
	return mux
}

// Handler returns the routed handler wrapped in the middleware chain. The
// request timeout applies inside the chain so that timed-out requests are
// still logged and counted.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()
	if timeout := s.cfg.Server.RequestTimeout; timeout > 0 {
		handler = http.TimeoutHandler(handler, timeout, `{"error":"Service Unavailable","message":"request timed out","code":503}`)
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.cfg.Server.CORSOrigins

	chain := []func(http.Handler) http.Handler{
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger, middleware.GetRequestID),
		middleware.Metrics(s.metricsRegistry),
		middleware.CORS(corsConfig),
		middleware.BodySizeLimit(s.maxBodyBytes()),
	}
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}

func (s *Server) maxBodyBytes() int64 {
	if s.cfg.Server.MaxBodyBytes > 0 {
		return s.cfg.Server.MaxBodyBytes
	}
	return middleware.DefaultMaxBodyBytes
}

// Run serves on the configured port until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	go s.updateMetricsPeriodically(ctx, metricsInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("fabric API listening", logging.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down fabric API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
