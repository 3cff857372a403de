package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// availableStatus is the property status shown on the public site.
const availableStatus = "Disponible"

// homeProperties is the number of properties listed on the home page.
const homeProperties = 12

// PropertyLister lists properties.
type PropertyLister interface {
	ListProperties(ctx context.Context, f database.PropertyFilter) ([]models.Property, error)
}

// CompanyProvider returns the agency configuration.
type CompanyProvider interface {
	Company() models.Company
}

// Site is the public site, mounted at the root.
type Site struct {
	properties PropertyLister
	company    CompanyProvider
}

// NewSite creates the public site module.
func NewSite(properties PropertyLister, company CompanyProvider) *Site {
	return &Site{properties: properties, company: company}
}

// Name implements webservice.Module.
func (*Site) Name() string { return "site" }

// Register implements webservice.Module.
func (s *Site) Register(r *mux.Router) {
	r.HandleFunc("/", s.home).Methods(http.MethodGet)
	r.HandleFunc("/version", version).Methods(http.MethodGet)
}

type home struct {
	Company    models.Company    `json:"company"`
	Properties []models.Property `json:"properties"`
}

func (s *Site) home(w http.ResponseWriter, r *http.Request) {
	props, err := s.properties.ListProperties(r.Context(), database.PropertyFilter{
		Status: availableStatus,
		Limit:  homeProperties,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, home{Company: s.company.Company(), Properties: list(props)})
}

func version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"version": constants.Version})
}
