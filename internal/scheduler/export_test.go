package scheduler

import (
	"context"
	"slices"
	"time"
)

type (
	DScheduleManager = dScheduleManager
	DRunner          = dRunner
)

// WithDebounce sets the delay between a schedule change and the resync of the workers.
func WithDebounce(d time.Duration) PoolOptions {
	return func(o *poolOptions) {
		o.debounce = d
	}
}

// WithSleep replaces the wait between two attempts of a task.
func WithSleep(sleep func(context.Context, time.Duration) error) Options {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithTeardownTimeout sets how long Run waits for the second part of the service to stop.
func WithTeardownTimeout(d time.Duration) ServiceOptions {
	return func(o *serviceOptions) {
		o.teardownTimeout = d
	}
}

// ErrServiceClosed is returned when running a service that was already quit.
var ErrServiceClosed = errServiceClosed

// SetIDs makes the app hand out ids from a fixed sequence.
func (a *App) SetIDs(ids ...string) {
	var i int
	a.newID = func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

// WorkerNames returns the sorted entry names of the active workers.
func (p *Pool) WorkerNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.workers))
	for name := range p.workers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
