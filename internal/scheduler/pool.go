package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/config"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/metrics"
)

// Pool is the beat: it keeps one worker per schedule entry and runs its task when due.
type Pool struct {
	cm     dScheduleManager
	runner dRunner

	now      func() time.Time
	debounce time.Duration

	mu       sync.Mutex
	workers  map[string]worker
	workerWG sync.WaitGroup

	metrics *metrics.TaskMetrics
}

type worker struct {
	entry  config.Entry
	cancel context.CancelFunc
}

type dScheduleManager interface {
	Watch(context.Context) (<-chan struct{}, <-chan error, error)
	Entries() []config.Entry
}

type dRunner interface {
	Run(ctx context.Context, task string, opts map[string]any) (any, error)
}

type poolOptions struct {
	location *time.Location
	debounce time.Duration
	metrics  *metrics.TaskMetrics
}

// PoolOptions represents an optional function to override Pool default values.
type PoolOptions func(*poolOptions)

// WithLocation sets the zone the "at" times of the schedule are read in.
func WithLocation(loc *time.Location) PoolOptions {
	return func(o *poolOptions) {
		o.location = loc
	}
}

// WithPoolMetrics records the number of active entries in m.
func WithPoolMetrics(m *metrics.TaskMetrics) PoolOptions {
	return func(o *poolOptions) {
		o.metrics = m
	}
}

// NewPool creates a beat running the entries of cm with runner.
func NewPool(cm dScheduleManager, runner dRunner, args ...PoolOptions) *Pool {
	opts := poolOptions{
		debounce: 2 * time.Second,
	}
	for _, opt := range args {
		opt(&opts)
	}
	if opts.location == nil {
		loc, err := time.LoadLocation(constants.DefaultTimeZone)
		if err != nil {
			slog.Warn("Could not load time zone, using local time", "zone", constants.DefaultTimeZone, "err", err)
			loc = time.Local
		}
		opts.location = loc
	}

	return &Pool{
		cm:       cm,
		runner:   runner,
		now:      func() time.Time { return time.Now().In(opts.location) },
		debounce: opts.debounce,
		workers:  make(map[string]worker),
		metrics:  opts.metrics,
	}
}

// Run starts one worker per schedule entry and resyncs them when the schedule changes.
//
// It blocks until the context is canceled and all workers are done, or until the schedule
// watcher fails. It always returns a non-nil error.
func (p *Pool) Run(ctx context.Context) error {
	slog.Info("Beat started")

	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, watchErr, err := p.cm.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch the schedule: %v", err)
	}

	p.syncWorkers(ctx)

	// Debounce bursts of schedule events.
	resync := time.NewTimer(p.debounce)
	resync.Stop()
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping beat")
			p.workerWG.Wait()
			return ctx.Err()

		case _, ok := <-changes:
			if !ok {
				return p.stop(ctx, cancel, errors.New("schedule changes channel closed unexpectedly"))
			}
			resync.Reset(p.debounce)

		case <-resync.C:
			slog.Info("Schedule changed, resyncing beat entries")
			p.syncWorkers(ctx)

		case err, ok := <-watchErr:
			if !ok {
				return p.stop(ctx, cancel, errors.New("schedule watcher error channel closed unexpectedly"))
			}
			if err != nil {
				slog.Error("Schedule watcher error", "err", err)
			}
		}
	}
}

// stop cancels every worker and waits for them. The watcher closes its channels once ctx
// is done, in which case the context error is returned instead of err.
func (p *Pool) stop(ctx context.Context, cancel context.CancelFunc, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	cancel()
	p.workerWG.Wait()
	return err
}

// syncWorkers stops the workers of removed or changed entries and starts the missing ones.
func (p *Pool) syncWorkers(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wanted := make(map[string]config.Entry)
	for _, e := range p.cm.Entries() {
		wanted[e.Name] = e
	}

	for name, w := range p.workers {
		if e, ok := wanted[name]; ok && reflect.DeepEqual(e, w.entry) {
			continue
		}
		slog.Info("Stopping beat entry", "entry", name)
		w.cancel()
		delete(p.workers, name)
	}

	for name, e := range wanted {
		if _, ok := p.workers[name]; ok {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		entryCtx, cancel := context.WithCancel(ctx)
		p.workers[name] = worker{entry: e, cancel: cancel}
		slog.Info("Starting beat entry", "entry", name, "task", e.Task)
		p.workerWG.Add(1)
		go p.entryWorker(entryCtx, e)
	}
}

// entryWorker runs the task of e each time it is due until ctx is canceled.
func (p *Pool) entryWorker(ctx context.Context, e config.Entry) {
	defer p.workerWG.Done()

	p.metrics.EntryStarted()
	defer p.metrics.EntryStopped()

	for {
		now := p.now()
		next, err := Next(e, now)
		if err != nil {
			slog.Error("Beat entry has no valid schedule", "entry", e.Name, "err", err)
			return
		}

		t := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		slog.Debug("Sending due task", "entry", e.Name, "task", e.Task)
		// Failures are logged and counted by the runner. The entry keeps its schedule.
		_, _ = p.runner.Run(ctx, e.Task, e.Options)
	}
}

// Next returns when e is due after now: now plus its interval, or the next occurrence
// of its "at" time in the location of now.
func Next(e config.Entry, now time.Time) (time.Time, error) {
	if e.Every > 0 {
		return now.Add(e.Every), nil
	}

	at, err := time.Parse("15:04", e.At)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %v", e.At, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
