// Package company stores the configuration of the agency printed on invoices and shown on the public site.
package company

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/ubuntu/decorate"
)

// DefaultName is the company name used until one is configured.
const DefaultName = "Inmobiliaria"

// Store holds the company configuration backed by a TOML file.
type Store struct {
	path string

	mu      sync.RWMutex
	company models.Company
}

// New returns a store reading and writing path. Call Load to read the file.
func New(path string) *Store {
	return &Store{
		path:    path,
		company: models.Company{Name: DefaultName},
	}
}

// Load reads the configuration file. A missing file keeps the default configuration.
func (s *Store) Load() (err error) {
	defer decorate.OnError(&err, "could not load company configuration")

	var c models.Company
	if _, err := toml.DecodeFile(s.path, &c); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("No company configuration file, using defaults", "file", s.path)
			return nil
		}
		return err
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if err := validate.Struct(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.company = c
	return nil
}

// Company returns the current configuration.
func (s *Store) Company() models.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.company
}

// Save validates c and replaces the configuration file atomically.
func (s *Store) Save(c models.Company) (err error) {
	defer decorate.OnError(&err, "could not save company configuration")

	if err := validate.Struct(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "company-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %v", err)
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove temporary file when writing company configuration", "file", tmp.Name(), "error", err)
		}
	}()

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		return fmt.Errorf("could not encode company configuration: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary file: %v", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("could not rename temporary file: %v", err)
	}

	s.company = c
	slog.Debug("Wrote company configuration", "file", s.path)
	return nil
}
