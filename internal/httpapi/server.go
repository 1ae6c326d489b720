// Package httpapi implements the thin HTTP/JSON surface named in spec §6,
// versioned under /api/v1: a chat endpoint driving F, an SSE endpoint
// streaming A's per-session events, and CRUD views onto B/D/E/H. Route
// handlers never contain domain logic of their own — they decode a
// request, call into the component that owns the operation, and encode
// the response.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/4ug-aug/envoy-v2/internal/agent"
	"github.com/4ug-aug/envoy-v2/internal/bus"
	"github.com/4ug-aug/envoy-v2/internal/catalog"
	"github.com/4ug-aug/envoy-v2/internal/integrations"
	"github.com/4ug-aug/envoy-v2/internal/observability"
	"github.com/4ug-aug/envoy-v2/internal/scheduler"
	"github.com/4ug-aug/envoy-v2/internal/store"
)

// Server owns the /api/v1 HTTP surface. It never mutates domain state
// directly — every handler delegates to the component that owns the
// corresponding slice of spec §6.
type Server struct {
	store        store.Store
	bus          *bus.Bus
	runtime      *agent.Runtime
	catalog      *catalog.Catalog
	integrations *integrations.Manager
	scheduler    *scheduler.Scheduler
	builtinNames map[string]struct{}
	logger       *observability.Logger

	httpServer   *http.Server
	httpListener net.Listener
}

// Config bundles the components Server's handlers are thin wrappers over.
type Config struct {
	Store        store.Store
	Bus          *bus.Bus
	Runtime      *agent.Runtime
	Catalog      *catalog.Catalog
	Integrations *integrations.Manager
	Scheduler    *scheduler.Scheduler
	Builtins     []agent.Tool
	Logger       *observability.Logger
}

// NewServer builds a Server from cfg.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.MustNewLogger(observability.LogConfig{})
	}
	builtinNames := make(map[string]struct{}, len(cfg.Builtins))
	for _, b := range cfg.Builtins {
		builtinNames[b.Name()] = struct{}{}
	}
	return &Server{
		store:        cfg.Store,
		bus:          cfg.Bus,
		runtime:      cfg.Runtime,
		catalog:      cfg.Catalog,
		integrations: cfg.Integrations,
		scheduler:    cfg.Scheduler,
		builtinNames: builtinNames,
		logger:       logger,
	}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/api/v1/chat", s.handleChat)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	mux.HandleFunc("/api/v1/sessions", s.handleSessions)
	mux.HandleFunc("/api/v1/sessions/", s.handleSessionByID)

	mux.HandleFunc("/api/v1/tools", s.handleTools)
	mux.HandleFunc("/api/v1/tools/", s.handleToolByName)

	mux.HandleFunc("/api/v1/integrations", s.handleIntegrations)
	mux.HandleFunc("/api/v1/integrations/", s.handleIntegrationByName)

	mux.HandleFunc("/api/v1/tasks", s.handleTasks)
	mux.HandleFunc("/api/v1/tasks/", s.handleTaskByName)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start binds addr and begins serving in a background goroutine. Start
// returns once the listener is bound; serving errors are logged, not
// returned, matching the teacher's fire-and-forget serve-goroutine idiom.
func (s *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen: %w", err)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.httpServer = server
	s.httpListener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "httpapi: server error", "error", err)
		}
	}()

	s.logger.Info(ctx, "httpapi: listening", "addr", addr)
	return nil
}

// Stop gracefully shuts the server down, waiting at most 5s for in-flight
// requests — except /api/v1/events, whose long-lived streams are simply
// cut, per spec §5's "idle HTTP connection must tolerate long-lived
// streams" applying to steady state, not shutdown.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
