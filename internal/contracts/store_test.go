package contracts_test

import (
	"context"
	"slices"
	"sync"

	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

type memStore struct {
	mu sync.Mutex

	nextID    int64
	contracts map[int64]models.Contract
	increases []models.ContractIncrease
	payments  map[int64]models.ContractPayment

	nextIncrease map[int64]models.Date
	statusErr    map[int64]error
}

func newMemStore(contracts ...models.Contract) *memStore {
	m := &memStore{
		nextID:       100,
		contracts:    make(map[int64]models.Contract),
		payments:     make(map[int64]models.ContractPayment),
		nextIncrease: make(map[int64]models.Date),
		statusErr:    make(map[int64]error),
	}
	for _, c := range contracts {
		m.contracts[c.ID] = c
	}
	return m
}

func (m *memStore) ListContracts(_ context.Context, f database.ContractFilter) ([]models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Contract
	for _, c := range m.contracts {
		if f.Refreshable && (c.Status == models.ContractFinished || c.Status == models.ContractCancelled) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b models.Contract) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memStore) GetContract(_ context.Context, id int64) (models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return models.Contract{}, database.ErrNotFound
	}
	return c, nil
}

func (m *memStore) CreateContract(_ context.Context, c models.Contract) (models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	m.contracts[c.ID] = c
	return c, nil
}

func (m *memStore) UpdateContract(_ context.Context, c models.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contracts[c.ID]; !ok {
		return database.ErrNotFound
	}
	m.contracts[c.ID] = c
	return nil
}

func (m *memStore) SetContractStatus(_ context.Context, id int64, status models.ContractStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.statusErr[id]; err != nil {
		return err
	}
	c, ok := m.contracts[id]
	if !ok {
		return database.ErrNotFound
	}
	c.Status = status
	m.contracts[id] = c
	return nil
}

func (m *memStore) ListContractIncreases(_ context.Context, contractID int64) ([]models.ContractIncrease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContractIncrease
	for _, inc := range m.increases {
		if inc.ContractID == contractID {
			out = append(out, inc)
		}
	}
	slices.SortFunc(out, func(a, b models.ContractIncrease) int { return b.EffectiveDate.Time().Compare(a.EffectiveDate.Time()) })
	return out, nil
}

func (m *memStore) ApplyContractIncrease(_ context.Context, inc models.ContractIncrease, next models.Date) (models.ContractIncrease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[inc.ContractID]
	if !ok {
		return models.ContractIncrease{}, database.ErrReferenced
	}
	m.nextID++
	inc.ID = m.nextID
	m.increases = append(m.increases, inc)
	c.Amount = inc.NewAmount
	c.NextIncreaseDate = next
	m.contracts[c.ID] = c
	m.nextIncrease[c.ID] = next
	return inc, nil
}

func (m *memStore) ListPaymentMethods(_ context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	methods := []models.PaymentMethod{{ID: 1, Name: "Efectivo", IsActive: true}, {ID: 2, Name: "Cheque"}}
	if activeOnly {
		return methods[:1], nil
	}
	return methods, nil
}

func (m *memStore) ListContractPayments(_ context.Context, f database.ContractPaymentFilter) ([]models.ContractPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContractPayment
	for _, p := range m.payments {
		if f.ContractID != 0 && p.ContractID != f.ContractID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if !f.OverdueOn.IsZero() && !p.IsOverdue(f.OverdueOn) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.ContractPayment) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memStore) GetContractPayment(_ context.Context, id int64) (models.ContractPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return models.ContractPayment{}, database.ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreateContractPayment(_ context.Context, p models.ContractPayment) (models.ContractPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.payments[p.ID] = p
	return p, nil
}

func (m *memStore) MarkContractPaymentPaid(_ context.Context, id int64, paidOn models.Date, receipt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return database.ErrNotFound
	}
	p.Status = models.ContractPaymentPaid
	p.PaymentDate = paidOn
	if receipt != "" {
		p.ReceiptNumber = receipt
	}
	m.payments[id] = p
	return nil
}
