// Package scheduler provides the task application of the back office.
//
// An App is a registry of named tasks. Running a task assigns it an id, retries it with an
// exponential delay when it fails and logs every outcome. The beat (Pool) runs the tasks
// listed in the schedule file; with an empty schedule nothing runs periodically.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/metrics"
)

var (
	// ErrUnknownTask is returned when running a task that was never registered.
	ErrUnknownTask = errors.New("unknown task")

	// ErrInvalidOptions is returned when the options of a task can't be decoded.
	// Such failures are not retried.
	ErrInvalidOptions = errors.New("invalid task options")
)

// Request describes one execution of a task.
type Request struct {
	ID      string
	Task    string
	Options map[string]any
	// Retries is the number of attempts that already failed.
	Retries int
}

// LogValue implements slog.LogValuer.
func (r Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String("task", r.Task),
		slog.Any("options", r.Options),
		slog.Int("retries", r.Retries),
	)
}

// Task is the body of a registered task. The returned value is logged on success.
type Task func(ctx context.Context, req Request) (any, error)

// App holds the registered tasks.
type App struct {
	name string

	mu    sync.RWMutex
	tasks map[string]Task

	retries    int
	retryDelay time.Duration
	metrics    *metrics.TaskMetrics

	sleep func(context.Context, time.Duration) error
	newID func() string
}

type options struct {
	retries    int
	retryDelay time.Duration
	metrics    *metrics.TaskMetrics
	sleep      func(context.Context, time.Duration) error
}

// Options represents an optional function to override App default values.
type Options func(*options)

// WithRetries sets how many times a failing task is retried and the base delay between attempts.
// The delay doubles after every attempt.
func WithRetries(retries int, delay time.Duration) Options {
	return func(o *options) {
		o.retries = retries
		o.retryDelay = delay
	}
}

// WithMetrics records task attempts in m.
func WithMetrics(m *metrics.TaskMetrics) Options {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates an empty task application.
func New(name string, args ...Options) *App {
	opts := options{
		retries:    constants.DefaultTaskRetries,
		retryDelay: constants.DefaultTaskRetryDelay,
		sleep:      sleep,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &App{
		name:       name,
		tasks:      make(map[string]Task),
		retries:    max(opts.retries, 0),
		retryDelay: opts.retryDelay,
		metrics:    opts.metrics,
		sleep:      opts.sleep,
		newID:      uuid.NewString,
	}
}

// Name returns the name of the application.
func (a *App) Name() string {
	return a.name
}

// Register adds a task under name.
func (a *App) Register(name string, fn Task) error {
	if name == "" || fn == nil {
		return errors.New("a task needs a name and a function")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.tasks[name]; ok {
		return fmt.Errorf("task %q is already registered in %s", name, a.name)
	}
	a.tasks[name] = fn
	return nil
}

// Tasks returns the sorted names of the registered tasks.
func (a *App) Tasks() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.tasks))
	for name := range a.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Has reports whether name is a registered task.
func (a *App) Has(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.tasks[name]
	return ok
}

// Run executes the task called name until it succeeds or runs out of retries.
func (a *App) Run(ctx context.Context, name string, opts map[string]any) (any, error) {
	a.mu.RLock()
	fn, ok := a.tasks[name]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	req := Request{ID: a.newID(), Task: name, Options: opts}
	for {
		start := time.Now()
		result, err := fn(ctx, req)
		elapsed := time.Since(start)

		if err == nil {
			a.metrics.Observe(name, metrics.OutcomeSuccess, elapsed)
			slog.Info("Task succeeded", "task_id", req.ID, "task_name", name, "result", result)
			return result, nil
		}

		if req.Retries >= a.retries || errors.Is(err, ErrInvalidOptions) || ctx.Err() != nil {
			a.metrics.Observe(name, metrics.OutcomeFailure, elapsed)
			slog.Error("Task failed", "task_id", req.ID, "task_name", name, "err", err)
			return nil, fmt.Errorf("task %s[%s] failed: %w", name, req.ID, err)
		}

		delay := a.retryDelay << req.Retries
		a.metrics.Observe(name, metrics.OutcomeRetry, elapsed)
		slog.Warn("Task retry", "task_id", req.ID, "task_name", name, "reason", err, "countdown", delay)
		if err := a.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("task %s[%s] interrupted before retrying: %w", name, req.ID, err)
		}
		req.Retries++
	}
}

// Decode fills out from the options of a schedule entry.
// Values are converted loosely ("10" fills an int) but unknown keys are rejected.
func Decode(opts map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
