package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/json2mqtt/internal/infrastructure/config"
	"github.com/nerrad567/json2mqtt/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds a single /healthz probe.
const healthCheckTimeout = 2 * time.Second

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"build_date"`
}

// Deps holds the dependencies shared by both servers.
type Deps struct {
	Addr     string
	Timeouts config.HTTPTimeoutConfig
	Logger   *logging.Logger
}

// OpsDeps holds the dependencies of the operations server.
type OpsDeps struct {
	Deps
	// Health is optional; without it /healthz always reports ok.
	Health HealthChecker
	// Metrics is optional; without it /metrics is not mounted.
	Metrics http.Handler
	Build   BuildInfo
}

// Server is one HTTP listener with its router and middleware.
//
// It is created with NewGateway or NewOps and started with Start().
type Server struct {
	name     string
	addr     string
	timeouts config.HTTPTimeoutConfig
	logger   *logging.Logger
	router   http.Handler

	health  HealthChecker
	metrics http.Handler
	build   BuildInfo

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewGateway creates the server that hands every request to gateway.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func NewGateway(deps Deps, gateway http.Handler) (*Server, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway handler is required")
	}
	s, err := newServer("gateway", deps)
	if err != nil {
		return nil, err
	}
	s.router = s.buildGatewayRouter(gateway)
	return s, nil
}

// NewOps creates the operations server.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func NewOps(deps OpsDeps) (*Server, error) {
	s, err := newServer("ops", deps.Deps)
	if err != nil {
		return nil, err
	}
	s.health = deps.Health
	s.metrics = deps.Metrics
	s.build = deps.Build
	s.router = s.buildOpsRouter()
	return s, nil
}

func newServer(name string, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Server{
		name:     name,
		addr:     deps.Addr,
		timeouts: deps.Timeouts,
		logger:   deps.Logger.With("component", name+"_server"),
	}, nil
}

// Start binds the listen address and serves in a background goroutine.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Base context for every request served
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("%s server already started", s.name)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding %s server to %s: %w", s.name, s.addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.timeouts.Idle) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("server starting", "address", ln.Addr().String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started, or the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Handler returns the server's router, middleware included.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close gracefully shuts down the server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down %s server: %w", s.name, err)
	}
	return nil
}

// HealthCheck verifies the server is running.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s health check: %w", s.name, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("%s server not started", s.name)
	}

	return nil
}
