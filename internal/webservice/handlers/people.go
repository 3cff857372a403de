package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// AgentStore persists agents.
type AgentStore interface {
	ListAgents(ctx context.Context, search string) ([]models.Agent, error)
	GetAgent(ctx context.Context, id int64) (models.Agent, error)
	CreateAgent(ctx context.Context, a models.Agent) (models.Agent, error)
	UpdateAgent(ctx context.Context, a models.Agent) error
	DeleteAgent(ctx context.Context, id int64) error
}

// CustomerStore persists customers.
type CustomerStore interface {
	ListCustomers(ctx context.Context, search string) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (models.Customer, error)
	CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error)
	UpdateCustomer(ctx context.Context, c models.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
}

// PropertyStore persists properties.
type PropertyStore interface {
	PropertyLister
	GetProperty(ctx context.Context, id int64) (models.Property, error)
	CreateProperty(ctx context.Context, p models.Property) (models.Property, error)
	UpdateProperty(ctx context.Context, p models.Property) error
	DeleteProperty(ctx context.Context, id int64) error
	ListPropertyTypes(ctx context.Context) ([]models.PropertyType, error)
	ListPropertyStatuses(ctx context.Context) ([]models.PropertyStatus, error)

	ListFeatures(ctx context.Context) ([]models.Feature, error)
	CreateFeature(ctx context.Context, f models.Feature) (models.Feature, error)
	DeleteFeature(ctx context.Context, id int64) error
	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, t models.Tag) (models.Tag, error)
	DeleteTag(ctx context.Context, id int64) error
	SetPropertyFeatures(ctx context.Context, propertyID int64, featureIDs []int64) error
	SetPropertyTags(ctx context.Context, propertyID int64, tagIDs []int64) error
}

// resource serves the list, create, detail, update and delete routes of an entity.
type resource[T any] struct {
	name string

	list   func(r *http.Request) ([]T, error)
	get    func(ctx context.Context, id int64) (T, error)
	create func(ctx context.Context, v T) (T, error)
	update func(ctx context.Context, v T) error
	delete func(ctx context.Context, id int64) error
	setID  func(v *T, id int64)
}

// Name implements webservice.Module.
func (res *resource[T]) Name() string { return res.name }

// Register implements webservice.Module.
func (res *resource[T]) Register(r *mux.Router) {
	r.HandleFunc("/", res.handleList).Methods(http.MethodGet)
	r.HandleFunc("/", res.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/{id:[0-9]+}", res.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", res.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", res.handleDelete).Methods(http.MethodDelete)
}

func (res *resource[T]) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := res.list(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(items))
}

func (res *resource[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var v T
	if err := readJSON(w, r, &v); err != nil {
		writeError(w, r, err)
		return
	}
	res.setID(&v, 0)
	if err := validate.Struct(v); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := res.create(r.Context(), v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (res *resource[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := res.get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (res *resource[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var v T
	if err := readJSON(w, r, &v); err != nil {
		writeError(w, r, err)
		return
	}
	res.setID(&v, id)
	if err := validate.Struct(v); err != nil {
		writeError(w, r, err)
		return
	}
	if err := res.update(r.Context(), v); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := res.get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (res *resource[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := res.delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Agents is the agents module.
type Agents struct {
	*resource[models.Agent]
}

// NewAgents creates the agents module. The list accepts a q search parameter.
func NewAgents(store AgentStore) *Agents {
	return &Agents{&resource[models.Agent]{
		name: "agents",
		list: func(r *http.Request) ([]models.Agent, error) {
			return store.ListAgents(r.Context(), r.URL.Query().Get("q"))
		},
		get:    store.GetAgent,
		create: store.CreateAgent,
		update: store.UpdateAgent,
		delete: store.DeleteAgent,
		setID:  func(a *models.Agent, id int64) { a.ID = id },
	}}
}

// Customers is the customers module.
type Customers struct {
	*resource[models.Customer]
}

// NewCustomers creates the customers module. The list accepts a q search parameter.
func NewCustomers(store CustomerStore) *Customers {
	return &Customers{&resource[models.Customer]{
		name: "customers",
		list: func(r *http.Request) ([]models.Customer, error) {
			return store.ListCustomers(r.Context(), r.URL.Query().Get("q"))
		},
		get:    store.GetCustomer,
		create: store.CreateCustomer,
		update: store.UpdateCustomer,
		delete: store.DeleteCustomer,
		setID:  func(c *models.Customer, id int64) { c.ID = id },
	}}
}

// Properties is the properties module. Besides the entity routes, it lists the property
// types and statuses and manages the features and tags attached to properties.
type Properties struct {
	*resource[models.Property]
	store PropertyStore
}

// NewProperties creates the properties module. The list accepts the q, type, status and agent
// parameters.
func NewProperties(store PropertyStore) *Properties {
	return &Properties{
		store: store,
		resource: &resource[models.Property]{
			name: "properties",
			list: func(r *http.Request) ([]models.Property, error) {
				f := database.PropertyFilter{Search: r.URL.Query().Get("q")}
				var err error
				if f.TypeID, err = queryID(r, "type"); err != nil {
					return nil, err
				}
				if f.StatusID, err = queryID(r, "status"); err != nil {
					return nil, err
				}
				if f.AgentID, err = queryID(r, "agent"); err != nil {
					return nil, err
				}
				return store.ListProperties(r.Context(), f)
			},
			get:    store.GetProperty,
			create: store.CreateProperty,
			update: store.UpdateProperty,
			delete: store.DeleteProperty,
			setID:  func(p *models.Property, id int64) { p.ID = id },
		},
	}
}

// Register implements webservice.Module.
func (p *Properties) Register(r *mux.Router) {
	r.HandleFunc("/types", p.types).Methods(http.MethodGet)
	r.HandleFunc("/statuses", p.statuses).Methods(http.MethodGet)

	r.HandleFunc("/features", p.features).Methods(http.MethodGet)
	r.HandleFunc("/features", p.createFeature).Methods(http.MethodPost)
	r.HandleFunc("/features/{id:[0-9]+}", p.deleteLabel(p.store.DeleteFeature)).Methods(http.MethodDelete)
	r.HandleFunc("/tags", p.tags).Methods(http.MethodGet)
	r.HandleFunc("/tags", p.createTag).Methods(http.MethodPost)
	r.HandleFunc("/tags/{id:[0-9]+}", p.deleteLabel(p.store.DeleteTag)).Methods(http.MethodDelete)
	r.HandleFunc("/{id:[0-9]+}/features", p.setLinks(p.store.SetPropertyFeatures)).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}/tags", p.setLinks(p.store.SetPropertyTags)).Methods(http.MethodPut)

	p.resource.Register(r)
}

func (p *Properties) types(w http.ResponseWriter, r *http.Request) {
	types, err := p.store.ListPropertyTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(types))
}

func (p *Properties) statuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := p.store.ListPropertyStatuses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(statuses))
}

func (p *Properties) features(w http.ResponseWriter, r *http.Request) {
	features, err := p.store.ListFeatures(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(features))
}

func (p *Properties) createFeature(w http.ResponseWriter, r *http.Request) {
	var f models.Feature
	if err := readJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	f.ID = 0
	if err := validate.Struct(f); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := p.store.CreateFeature(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (p *Properties) tags(w http.ResponseWriter, r *http.Request) {
	tags, err := p.store.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(tags))
}

func (p *Properties) createTag(w http.ResponseWriter, r *http.Request) {
	var t models.Tag
	if err := readJSON(w, r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	t.ID = 0
	if err := validate.Struct(t); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := p.store.CreateTag(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (p *Properties) deleteLabel(del func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := del(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// setLinks replaces the features or tags of a property with the ids of the body and answers
// with the updated property.
func (p *Properties) setLinks(set func(ctx context.Context, propertyID int64, ids []int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var body struct {
			IDs []int64 `json:"ids"`
		}
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		for _, linked := range body.IDs {
			if linked <= 0 {
				writeError(w, r, validate.Errorf("invalid id %d", linked))
				return
			}
		}
		if err := set(r.Context(), id, body.IDs); err != nil {
			writeError(w, r, err)
			return
		}
		prop, err := p.store.GetProperty(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, prop)
	}
}
