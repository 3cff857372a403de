// Package config provides a manager that loads and watches the beat schedule file.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Entry is a single periodic task of the beat schedule.
type Entry struct {
	// Name identifies the entry. It must be unique in the schedule.
	Name string `yaml:"name"`
	// Task is the registered task name to run.
	Task string `yaml:"task"`
	// Every runs the task at a fixed interval.
	Every time.Duration `yaml:"every,omitempty"`
	// At runs the task once a day at the given HH:MM local time.
	At string `yaml:"at,omitempty"`
	// Options are passed to the task as keyword arguments.
	Options map[string]any `yaml:"options,omitempty"`
}

// Schedule is the content of the beat schedule file.
type Schedule struct {
	Entries []Entry `yaml:"entries"`
}

// Manager holds the current beat schedule.
type Manager struct {
	schedule   Schedule
	lock       sync.RWMutex
	configPath string

	log *slog.Logger
}

type options struct {
	Logger *slog.Logger
}

// Options represents an optional function to override Manager default values.
type Options func(*options)

// WithLogger sets the logger of the manager.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.Logger = l
	}
}

// New creates a new schedule manager reading the specified path.
func New(path string, args ...Options) *Manager {
	opts := options{
		Logger: slog.Default(),
	}

	for _, opt := range args {
		opt(&opts)
	}

	return &Manager{
		configPath: path,
		log:        opts.Logger,
	}
}

// Load reads the schedule from the file and updates the internal state.
// A missing file is an empty schedule.
func (cm *Manager) Load() error {
	data, err := os.ReadFile(cm.configPath)
	if errors.Is(err, os.ErrNotExist) {
		cm.lock.Lock()
		cm.schedule = Schedule{}
		cm.lock.Unlock()
		cm.log.Info("No schedule file, beat schedule is empty", "path", cm.configPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schedule file: %w", err)
	}

	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding schedule YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	cm.lock.Lock()
	cm.schedule = s
	cm.lock.Unlock()

	cm.log.Info("Schedule loaded", "entries", len(s.Entries))
	return nil
}

// Validate checks that entry names are unique and that each entry has a task and a timing.
func (s Schedule) Validate() error {
	seen := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if e.Name == "" {
			return fmt.Errorf("schedule entry for task %q has no name", e.Task)
		}
		if _, ok := seen[e.Name]; ok {
			return fmt.Errorf("duplicate schedule entry %q", e.Name)
		}
		seen[e.Name] = struct{}{}

		if e.Task == "" {
			return fmt.Errorf("schedule entry %q has no task", e.Name)
		}
		if e.Every < 0 {
			return fmt.Errorf("schedule entry %q has a negative interval", e.Name)
		}
		if e.Every == 0 && e.At == "" {
			return fmt.Errorf("schedule entry %q needs either every or at", e.Name)
		}
		if e.At != "" {
			if _, err := time.Parse("15:04", e.At); err != nil {
				return fmt.Errorf("schedule entry %q has an invalid time %q: %v", e.Name, e.At, err)
			}
		}
	}
	return nil
}

// Watch starts watching the schedule file for changes.
//
// It returns two channels: one for schedule changes which result in a successful load and another for unrecoverable watcher errors.
func (cm *Manager) Watch(ctx context.Context) (changes <-chan struct{}, errors <-chan error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %v", err)
	}

	configDir, _ := filepath.Split(cm.configPath)
	if configDir == "" {
		configDir = "."
	}
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to add directory %s to watcher: %v", configDir, err)
	}

	cm.log.Info("Watching schedule directory", "dir", configDir)
	changesCh := make(chan struct{}, 1)
	errorsCh := make(chan error, 1)

	if err := cm.Load(); err != nil {
		cm.log.Warn("Error loading initial schedule", "err", err)
	}

	go func() {
		defer close(changesCh)
		defer close(errorsCh)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				cm.log.Info("Schedule watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					errorsCh <- fmt.Errorf("watcher events channel closed unexpectedly")
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if filepath.Clean(event.Name) != filepath.Clean(cm.configPath) {
					continue
				}

				cm.log.Debug("Schedule file changed. Reloading...")
				if err := cm.Load(); err != nil {
					cm.log.Warn("Error reloading schedule", "err", err)
					continue
				}

				select {
				case changesCh <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					errorsCh <- fmt.Errorf("watcher errors channel closed unexpectedly")
					return
				}
				cm.log.Warn("Watcher error", "err", err)
			}
		}
	}()

	return changesCh, errorsCh, nil
}

// Entries returns a copy of the current schedule entries.
func (cm *Manager) Entries() []Entry {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	return slices.Clone(cm.schedule.Entries)
}

// Path returns the watched schedule file.
func (cm *Manager) Path() string {
	return cm.configPath
}
