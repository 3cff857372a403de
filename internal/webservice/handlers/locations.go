package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// LocationService looks up the location hierarchy.
type LocationService interface {
	Countries(ctx context.Context) ([]models.Country, error)
	States(ctx context.Context, countryID int64) ([]models.State, error)
	Cities(ctx context.Context, stateID int64) ([]models.City, error)
}

// Locations is the country, state and city lookup module.
type Locations struct {
	svc LocationService
}

// NewLocations creates the locations module.
func NewLocations(svc LocationService) *Locations {
	return &Locations{svc: svc}
}

// Name implements webservice.Module.
func (*Locations) Name() string { return "locations" }

// Register implements webservice.Module.
func (l *Locations) Register(r *mux.Router) {
	r.HandleFunc("/countries", l.countries).Methods(http.MethodGet)
	r.HandleFunc("/countries/{id:[0-9]+}/states", l.states).Methods(http.MethodGet)
	r.HandleFunc("/states/{id:[0-9]+}/cities", l.cities).Methods(http.MethodGet)
}

func (l *Locations) countries(w http.ResponseWriter, r *http.Request) {
	countries, err := l.svc.Countries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(countries))
}

func (l *Locations) states(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	states, err := l.svc.States(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(states))
}

func (l *Locations) cities(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cities, err := l.svc.Cities(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(cities))
}
