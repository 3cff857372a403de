// Package locations serves the country, state and city hierarchy and loads it from INI seed files.
//
// A seed file has one section per state, named "Country/State", listing its cities:
//
//	[Argentina/Buenos Aires]
//	cities = La Plata, Mar del Plata, Bahía Blanca
package locations

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/ubuntu/decorate"
	"gopkg.in/ini.v1"
)

const citiesKey = "cities"

// Store is the persistence of the locations.
type Store interface {
	ListCountries(ctx context.Context) ([]models.Country, error)
	ListStates(ctx context.Context, countryID int64) ([]models.State, error)
	ListCities(ctx context.Context, stateID int64) ([]models.City, error)
	UpsertLocations(ctx context.Context, country, state string, cities []string) (int, error)
}

// Entry is a state of a country with its cities.
type Entry struct {
	Country string
	State   string
	Cities  []string
}

// LoadReport summarizes a seed file import.
type LoadReport struct {
	States         int `json:"states"`
	CitiesInserted int `json:"cities_inserted"`
}

// Service serves and loads the locations.
type Service struct {
	store Store
}

// New returns a locations service backed by store.
func New(store Store) *Service {
	return &Service{store: store}
}

// Countries returns every country.
func (s *Service) Countries(ctx context.Context) ([]models.Country, error) {
	return s.store.ListCountries(ctx)
}

// States returns the states of a country.
func (s *Service) States(ctx context.Context, countryID int64) ([]models.State, error) {
	return s.store.ListStates(ctx, countryID)
}

// Cities returns the cities of a state.
func (s *Service) Cities(ctx context.Context, stateID int64) ([]models.City, error) {
	return s.store.ListCities(ctx, stateID)
}

// Parse reads a seed file. source is a file name, a []byte or an io.Reader, as accepted by ini.Load.
func Parse(source any) (entries []Entry, err error) {
	defer decorate.OnError(&err, "could not parse locations")

	f, err := ini.Load(source)
	if err != nil {
		return nil, err
	}

	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			if len(sec.Keys()) > 0 {
				return nil, fmt.Errorf("keys outside of a [Country/State] section")
			}
			continue
		}

		country, state, ok := strings.Cut(sec.Name(), "/")
		country, state = strings.TrimSpace(country), strings.TrimSpace(state)
		if !ok || country == "" || state == "" {
			return nil, fmt.Errorf("section %q is not named Country/State", sec.Name())
		}

		var cities []string
		if sec.HasKey(citiesKey) {
			for _, c := range sec.Key(citiesKey).Strings(",") {
				if c != "" && !slices.Contains(cities, c) {
					cities = append(cities, c)
				}
			}
		}
		entries = append(entries, Entry{Country: country, State: state, Cities: cities})
	}
	return entries, nil
}

// Load imports a seed file, keeping the locations already stored.
func (s *Service) Load(ctx context.Context, source any) (report LoadReport, err error) {
	entries, err := Parse(source)
	if err != nil {
		return report, err
	}

	for _, e := range entries {
		n, err := s.store.UpsertLocations(ctx, e.Country, e.State, e.Cities)
		if err != nil {
			return report, fmt.Errorf("could not store %s/%s: %v", e.Country, e.State, err)
		}
		report.States++
		report.CitiesInserted += n
		slog.Debug("Locations loaded", "country", e.Country, "state", e.State, "inserted", n)
	}

	slog.Info("Locations loaded", "states", report.States, "cities", report.CitiesInserted)
	return report, nil
}
