package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// ContractService manages contracts and their rent increases.
type ContractService interface {
	List(ctx context.Context, f database.ContractFilter) ([]models.Contract, error)
	Get(ctx context.Context, id int64) (models.Contract, error)
	Create(ctx context.Context, c models.Contract) (models.Contract, error)
	Update(ctx context.Context, c models.Contract) (models.Contract, error)
	Cancel(ctx context.Context, id int64) (models.Contract, error)
	RefreshStatus(ctx context.Context, id int64) (models.Contract, bool, error)
	Increases(ctx context.Context, contractID int64) ([]models.ContractIncrease, error)
	AddIncrease(ctx context.Context, inc models.ContractIncrease) (models.ContractIncrease, error)
}

// Contracts is the contracts module.
type Contracts struct {
	svc ContractService
}

// NewContracts creates the contracts module.
func NewContracts(svc ContractService) *Contracts {
	return &Contracts{svc: svc}
}

// Name implements webservice.Module.
func (*Contracts) Name() string { return "contracts" }

// Register implements webservice.Module.
func (c *Contracts) Register(r *mux.Router) {
	r.HandleFunc("/", c.list).Methods(http.MethodGet)
	r.HandleFunc("/", c.create).Methods(http.MethodPost)
	r.HandleFunc("/{id:[0-9]+}", c.get).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", c.update).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}/cancel", c.cancel).Methods(http.MethodPost)
	r.HandleFunc("/{id:[0-9]+}/refresh", c.refresh).Methods(http.MethodPost)
	r.HandleFunc("/{id:[0-9]+}/increases", c.increases).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}/increases", c.addIncrease).Methods(http.MethodPost)
}

func (c *Contracts) list(w http.ResponseWriter, r *http.Request) {
	f := database.ContractFilter{Status: models.ContractStatus(r.URL.Query().Get("status"))}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, r, validate.Errorf("unknown contract status %q", f.Status))
		return
	}
	var err error
	if f.AgentID, err = queryID(r, "agent"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.CustomerID, err = queryID(r, "customer"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.PropertyID, err = queryID(r, "property"); err != nil {
		writeError(w, r, err)
		return
	}

	contracts, err := c.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(contracts))
}

func (c *Contracts) create(w http.ResponseWriter, r *http.Request) {
	var contract models.Contract
	if err := readJSON(w, r, &contract); err != nil {
		writeError(w, r, err)
		return
	}
	contract.ID = 0
	created, err := c.svc.Create(r.Context(), contract)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (c *Contracts) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	contract, err := c.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, contract)
}

func (c *Contracts) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var contract models.Contract
	if err := readJSON(w, r, &contract); err != nil {
		writeError(w, r, err)
		return
	}
	contract.ID = id
	updated, err := c.svc.Update(r.Context(), contract)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (c *Contracts) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	contract, err := c.svc.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, contract)
}

type refreshResponse struct {
	Contract models.Contract `json:"contract"`
	Changed  bool            `json:"changed"`
}

func (c *Contracts) refresh(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	contract, changed, err := c.svc.RefreshStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, refreshResponse{Contract: contract, Changed: changed})
}

func (c *Contracts) increases(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	increases, err := c.svc.Increases(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(increases))
}

func (c *Contracts) addIncrease(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var inc models.ContractIncrease
	if err := readJSON(w, r, &inc); err != nil {
		writeError(w, r, err)
		return
	}
	inc.ID = 0
	inc.ContractID = id
	created, err := c.svc.AddIncrease(r.Context(), inc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}
