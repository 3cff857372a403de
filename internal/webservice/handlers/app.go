package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// DashboardStore computes the back office overview.
type DashboardStore interface {
	Dashboard(ctx context.Context, today models.Date) (models.Dashboard, error)
}

// CompanyStore reads and writes the agency configuration.
type CompanyStore interface {
	CompanyProvider
	Save(c models.Company) error
}

// App is the back office home: dashboard and agency settings.
type App struct {
	dashboard DashboardStore
	company   CompanyStore
	today     func() models.Date
}

// NewApp creates the app module. today gives the day the dashboard is computed for.
func NewApp(dashboard DashboardStore, company CompanyStore, today func() models.Date) *App {
	return &App{dashboard: dashboard, company: company, today: today}
}

// Name implements webservice.Module.
func (*App) Name() string { return "app" }

// Register implements webservice.Module.
func (a *App) Register(r *mux.Router) {
	r.HandleFunc("/", a.getDashboard).Methods(http.MethodGet)
	r.HandleFunc("/company", a.getCompany).Methods(http.MethodGet)
	r.HandleFunc("/company", a.updateCompany).Methods(http.MethodPut)
}

func (a *App) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.dashboard.Dashboard(r.Context(), a.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (a *App) getCompany(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, a.company.Company())
}

func (a *App) updateCompany(w http.ResponseWriter, r *http.Request) {
	var c models.Company
	if err := readJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.company.Save(c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a.company.Company())
}
