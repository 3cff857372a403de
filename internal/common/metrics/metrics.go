// Package metrics provides the Prometheus metrics HTTP server and the collectors shared by the services.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the configuration for the metrics server.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the /metrics endpoint of a registry.
type Server struct {
	httpServer *http.Server

	mu   sync.RWMutex
	addr net.Addr
}

// New creates a metrics server exposing the given gatherer.
func New(cfg Config, reg prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// ListenAndServe listens on the configured address and serves until shut down.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	return s.httpServer.Serve(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close stops the server.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Addr returns the address the server is listening on, or an empty string before it listens.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Task outcomes used as label values.
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeFailure = "failure"
)

// TaskMetrics collects task executions of the scheduler.
type TaskMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	active   prometheus.Gauge
}

// NewTaskMetrics registers the task collectors in reg.
func NewTaskMetrics(reg prometheus.Registerer) (*TaskMetrics, error) {
	m := &TaskMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_task_runs_total",
			Help: "Number of task attempts by task and outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_task_duration_seconds",
			Help:    "Duration of task attempts.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"task"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backoffice_beat_active_entries",
			Help: "Number of schedule entries with a running beat worker.",
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.duration, m.active} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register task collector: %v", err)
		}
	}
	return m, nil
}

// Observe records one attempt of task.
func (m *TaskMetrics) Observe(task, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(task, outcome).Inc()
	m.duration.WithLabelValues(task).Observe(d.Seconds())
}

// EntryStarted increments the number of active schedule entries.
func (m *TaskMetrics) EntryStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

// EntryStopped decrements the number of active schedule entries.
func (m *TaskMetrics) EntryStopped() {
	if m == nil {
		return
	}
	m.active.Dec()
}
