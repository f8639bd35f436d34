// Package server runs the local embed server that lets a second process hand its
// request to the running instance.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"verge-go/internal/observability"
)

// Commands are the actions the embed server can trigger.
type Commands struct {
	// ShowWindow focuses or re-creates the main window.
	ShowWindow func()
	// ImportScheme imports a clash:// request. It runs outside the request.
	ImportScheme func(ctx context.Context, request string)
}

// Server is the embed HTTP server bound to the singleton port on loopback.
type Server struct {
	addr     string
	commands Commands
	metrics  *observability.MetricsManager
	logger   *zap.SugaredLogger
	router   *chi.Mux

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	imports    sync.WaitGroup
	baseCtx    context.Context
	cancel     context.CancelFunc
}

// New creates the embed server for port. metrics may be nil.
func New(port uint16, commands Commands, metrics *observability.MetricsManager, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:     net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))),
		commands: commands,
		metrics:  metrics,
		logger:   logger,
		router:   chi.NewRouter(),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	if s.metrics != nil {
		s.router.Use(s.metrics.HTTPMiddleware())
	}

	s.router.Route("/commands", func(r chi.Router) {
		r.Get("/visible", s.handleVisible)
		r.Get("/scheme", s.handleScheme)
	})

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleVisible(w http.ResponseWriter, _ *http.Request) {
	if s.commands.ShowWindow != nil {
		s.commands.ShowWindow()
	}
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleScheme(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Query().Get("param")
	if param == "" {
		http.Error(w, "missing param", http.StatusBadRequest)
		return
	}

	if s.commands.ImportScheme != nil {
		s.imports.Add(1)
		go func() {
			defer s.imports.Done()
			s.commands.ImportScheme(s.baseCtx, param)
		}()
	}
	_, _ = w.Write([]byte("ok"))
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.New("embed server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		if isAddrInUseError(err) {
			return &PortInUseError{Address: s.addr, Err: err}
		}
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.logger.Infow("Starting embed server", "address", ln.Addr().String())

	httpServer := s.httpServer
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("Embed server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server and waits for pending imports.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	var err error
	if httpServer != nil {
		if err = httpServer.Shutdown(ctx); err != nil {
			s.logger.Warnw("Failed to gracefully shutdown embed server, forcing close", "error", err)
			_ = httpServer.Close()
		}
	}

	s.cancel()
	done := make(chan struct{})
	go func() {
		s.imports.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
