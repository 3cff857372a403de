package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Service runs the beat next to the metrics server until one of them stops.
type Service struct {
	beat          Beat
	metricsServer MetricsServer

	// ctx interrupts everything. It is the parent of gracefulCtx.
	ctx    context.Context
	cancel context.CancelFunc

	// gracefulCtx lets the running tasks and requests finish.
	gracefulCtx    context.Context
	gracefulCancel context.CancelFunc

	teardownTimeout time.Duration

	running chan struct{}
}

// Beat runs the schedule until its context is canceled.
type Beat interface {
	Run(ctx context.Context) error
}

// MetricsServer serves the metrics of the service.
type MetricsServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

type serviceOptions struct {
	teardownTimeout time.Duration
}

// ServiceOptions represents an optional function to override Service default values.
type ServiceOptions func(*serviceOptions)

var (
	errServiceClosed = errors.New("service closed")

	// ErrTeardownTimeout is returned when one part of the service did not stop in time
	// after the other one did. A forced Quit may be required.
	ErrTeardownTimeout = errors.New("service teardown timed out")
)

// NewService creates the beat service.
func NewService(ctx context.Context, beat Beat, metricsServer MetricsServer, args ...ServiceOptions) *Service {
	opts := serviceOptions{
		teardownTimeout: 2 * time.Minute,
	}
	for _, opt := range args {
		opt(&opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	gCtx, gCancel := context.WithCancel(ctx)

	running := make(chan struct{})
	close(running)
	return &Service{
		beat:            beat,
		metricsServer:   metricsServer,
		ctx:             ctx,
		cancel:          cancel,
		gracefulCtx:     gCtx,
		gracefulCancel:  gCancel,
		teardownTimeout: opts.teardownTimeout,
		running:         running,
	}
}

// Run blocks until both the beat and the metrics server stopped, or until the teardown
// timeout expired after the first of them stopped.
func (s *Service) Run() error {
	slog.Info("Beat service started")

	if s.gracefulCtx.Err() != nil {
		return errServiceClosed
	}

	s.running = make(chan struct{})
	defer close(s.running)
	defer s.cancel()

	parts := []func() error{s.runBeat, s.runMetrics}
	done := make(chan error, len(parts))
	for _, run := range parts {
		go func() { done <- run() }()
	}

	err := <-done
	slog.Info("Waiting for the beat service to stop")

	timeout := time.NewTimer(s.teardownTimeout)
	defer timeout.Stop()
	for range len(parts) - 1 {
		select {
		case e := <-done:
			err = errors.Join(err, e)
		case <-timeout.C:
			slog.Warn("Beat service teardown timed out")
			return errors.Join(err, ErrTeardownTimeout)
		}
	}
	return err
}

func (s *Service) runBeat() error {
	defer s.gracefulCancel()

	if err := s.beat.Run(s.gracefulCtx); err != nil && !errors.Is(err, s.gracefulCtx.Err()) {
		slog.Error("Beat stopped with an error", "err", err)
		return fmt.Errorf("beat error: %v", err)
	}
	slog.Info("Beat stopped")
	return nil
}

func (s *Service) runMetrics() error {
	defer s.gracefulCancel()

	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-s.ctx.Done():
		slog.Info("Closing metrics server", "reason", s.ctx.Err())
		s.metricsServer.Close()
		return nil
	case <-s.gracefulCtx.Done():
		if err := s.metricsServer.Shutdown(s.ctx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %v", err)
		}
		return nil
	case err := <-serveErr:
		if err != nil {
			slog.Error("Metrics server stopped with an error", "err", err)
			return fmt.Errorf("metrics server error: %v", err)
		}
		return nil
	}
}

// Quit stops the service and waits for Run to return.
// A forced quit interrupts running tasks.
func (s *Service) Quit(force bool) {
	slog.Info("Stopping beat service", "force", force)

	if force {
		s.cancel()
		s.metricsServer.Close()
	} else {
		s.gracefulCancel()
	}

	<-s.running
}
