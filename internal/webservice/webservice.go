// Package webservice provides the HTTP server of the back office: the prefix table of the
// modules, served next to a Prometheus metrics server.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/inmobiliaria/backoffice/internal/webservice/middleware"
)

// Server runs the HTTP server of the modules and the metrics server.
type Server struct {
	httpServer    *http.Server
	metricsServer MetricsServer

	mu          sync.RWMutex
	primaryAddr net.Addr

	// This context is used to interrupt any action.
	// It must be the parent of gracefulCtx.
	ctx    context.Context
	cancel context.CancelFunc

	// This context lets running requests finish.
	gracefulCtx    context.Context
	gracefulCancel context.CancelFunc
}

// MetricsServer serves the metrics of the service.
type MetricsServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

// StaticConfig holds the static configuration for the server.
type StaticConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxHeaderBytes int

	ListenHost string
	ListenPort int
}

// New creates a Server serving handler.
func New(ctx context.Context, sc StaticConfig, handler http.Handler, metricsServer MetricsServer) *Server {
	ctx, cancel := context.WithCancel(ctx)
	gCtx, gCancel := context.WithCancel(ctx)

	if sc.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, sc.RequestTimeout, "")
	}

	return &Server{
		httpServer: &http.Server{
			Addr:           net.JoinHostPort(sc.ListenHost, strconv.Itoa(sc.ListenPort)),
			ReadTimeout:    sc.ReadTimeout,
			WriteTimeout:   sc.WriteTimeout,
			Handler:        middleware.Logging(middleware.Recover(handler)),
			MaxHeaderBytes: sc.MaxHeaderBytes,
		},
		metricsServer: metricsServer,

		ctx:            ctx,
		cancel:         cancel,
		gracefulCtx:    gCtx,
		gracefulCancel: gCancel,
	}
}

// Run serves until Quit is called or one of the servers fails.
func (s *Server) Run() error {
	slog.Info("Starting server", "addr", s.httpServer.Addr)

	// already asked to quit?
	select {
	case <-s.gracefulCtx.Done():
		return errors.New("server is already shutting down")
	default:
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("could not listen on %s: %v", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.primaryAddr = listener.Addr()
	s.mu.Unlock()

	serverErr := make(chan error, 2)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %v", err)
		}
	}()
	go func() {
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("metrics server error: %v", err)
		}
	}()

	select {
	case <-s.gracefulCtx.Done():
		slog.Info("Graceful shutdown initiated")
		// The parent context unblocks Shutdown when a forced quit follows.
		err := errors.Join(s.httpServer.Shutdown(s.ctx), s.metricsServer.Shutdown(s.ctx))
		s.cancel()
		if err != nil {
			slog.Error("Graceful shutdown failed", "err", err)
			return err
		}
		slog.Info("Server shut down gracefully")
		return nil

	case err := <-serverErr:
		slog.Error("Server encountered error", "err", err)
		errC := errors.Join(s.httpServer.Close(), s.metricsServer.Close())
		s.cancel()
		return errors.Join(err, errC)
	}
}

// Quit shuts down the servers. A forced quit interrupts running requests.
func (s *Server) Quit(force bool) {
	if force {
		s.httpServer.Close()
		s.metricsServer.Close()
		s.cancel()
	} else {
		s.gracefulCancel()
	}
	slog.Info("Server quit", "force", force)
}

// Addr returns the address the server listens on, or an empty string before it listens.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.primaryAddr == nil {
		return ""
	}
	return s.primaryAddr.String()
}
