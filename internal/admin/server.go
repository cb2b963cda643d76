// Package admin exposes a local read-only inspection surface: health,
// Prometheus metrics, the registered tool catalog, the execution history,
// and stored sessions. It binds to loopback by default and carries no
// mutating endpoints beyond session deletion.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SamuelSchlesinger/generalist/internal/session"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

const shutdownTimeout = 5 * time.Second

// Server is the admin HTTP server.
type Server struct {
	addr      string
	registry  *tool.Registry
	sessions  session.Store
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// Config wires the server's dependencies.
type Config struct {
	Addr     string
	Registry *tool.Registry
	Sessions session.Store
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// New builds an admin server. Sessions and Gatherer may be nil; the
// corresponding endpoints degrade rather than disappear.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:     cfg.Addr,
		registry: cfg.Registry,
		sessions: cfg.Sessions,
		gatherer: cfg.Gatherer,
		logger:   logger,
	}
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth())
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tools", s.handleListTools())
		r.Get("/executions", s.handleListExecutions())
		r.Get("/sessions", s.handleListSessions())
		r.Delete("/sessions/{id}", s.handleDeleteSession())
	})

	return r
}

// Start begins serving in the background. The listener is opened
// synchronously so bind errors surface immediately.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return errors.New("admin: listen failed: " + err.Error())
	}

	go func() {
		s.logger.Info("admin server listening", "addr", s.addr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin serve error", "error", err)
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	s.logger.Info("admin server shutting down")
	return s.server.Shutdown(shutdownCtx)
}
