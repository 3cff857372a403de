package accounting_test

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// memStore is an in-memory accounting store following the database semantics.
type memStore struct {
	mu sync.Mutex

	nextID     int64
	invoices   map[int64]*models.Invoice
	customers  map[int64]models.Customer
	contracts  []models.Contract
	properties map[int64]models.Property
	receipts   map[int64]*models.OwnerReceipt

	// createErr fails the creation of invoices for the given contract.
	createErr map[int64]error
}

func newMemStore() *memStore {
	return &memStore{
		invoices: make(map[int64]*models.Invoice),
		customers: map[int64]models.Customer{
			1: {ID: 1, FirstName: "Juan", LastName: "Pérez", Email: "juan@example.com", Document: "30111222"},
			2: {ID: 2, FirstName: "Sin", LastName: "Correo"},
			3: {ID: 3, FirstName: "María", LastName: "Dueña", Email: "maria@example.com"},
			4: {ID: 4, FirstName: "Mal", LastName: "Correo", Email: "maria@"},
		},
		properties: make(map[int64]models.Property),
		receipts:   make(map[int64]*models.OwnerReceipt),
		createErr:  make(map[int64]error),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) copyOf(inv *models.Invoice) models.Invoice {
	c := *inv
	c.Items = slices.Clone(inv.Items)
	c.Payments = slices.Clone(inv.Payments)
	if len(c.Items) > 0 {
		c.TotalAmount = c.ComputeTotal()
	}
	return c
}

func (m *memStore) ListInvoices(_ context.Context, f models.InvoiceFilter) ([]models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Invoice
	for _, inv := range m.invoices {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, m.copyOf(inv))
	}
	slices.SortFunc(out, func(a, b models.Invoice) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memStore) GetInvoice(_ context.Context, id int64) (models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return models.Invoice{}, database.ErrNotFound
	}
	return m.copyOf(inv), nil
}

func (m *memStore) CreateInvoice(_ context.Context, inv models.Invoice) (models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErr[inv.ContractID]; err != nil {
		return models.Invoice{}, err
	}
	inv.ID = m.id()
	c, ok := m.customers[inv.CustomerID]
	if !ok {
		return models.Invoice{}, database.ErrReferenced
	}
	inv.CustomerName = c.FullName()
	for i := range inv.Items {
		inv.Items[i].ID = m.id()
		inv.Items[i].InvoiceID = inv.ID
	}
	stored := inv
	m.invoices[inv.ID] = &stored
	return m.copyOf(&stored), nil
}

func (m *memStore) UpdateInvoice(_ context.Context, inv models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.invoices[inv.ID]
	if !ok {
		return database.ErrNotFound
	}
	cur.Number, cur.Date, cur.DueDate, cur.CustomerID, cur.ContractID, cur.Description =
		inv.Number, inv.Date, inv.DueDate, inv.CustomerID, inv.ContractID, inv.Description
	if len(cur.Items) == 0 {
		cur.TotalAmount = inv.TotalAmount
	}
	return nil
}

func (m *memStore) DeleteInvoice(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *memStore) SetInvoiceStatus(_ context.Context, id int64, status models.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return database.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *memStore) SetInvoiceNumber(_ context.Context, id int64, number string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ID != id && inv.Number == number {
			return fmt.Errorf("%w: number %s", database.ErrConflict, number)
		}
	}
	inv, ok := m.invoices[id]
	if !ok {
		return database.ErrNotFound
	}
	inv.Number = number
	return nil
}

func (m *memStore) InvoicesWithoutNumber(ctx context.Context) ([]models.Invoice, error) {
	all, _ := m.ListInvoices(ctx, models.InvoiceFilter{})
	return slices.DeleteFunc(all, func(inv models.Invoice) bool { return inv.Number != "" }), nil
}

func (m *memStore) MaxInvoiceSequence(_ context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := fmt.Sprintf("INV-%04d-", year)
	var last int
	for _, inv := range m.invoices {
		if !strings.HasPrefix(inv.Number, prefix) {
			continue
		}
		if seq, err := strconv.Atoi(strings.TrimPrefix(inv.Number, prefix)); err == nil {
			last = max(last, seq)
		}
	}
	return last, nil
}

func (m *memStore) LastContractInvoiceDate(_ context.Context, contractID int64) (models.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last models.Date
	for _, inv := range m.invoices {
		if inv.ContractID == contractID && inv.Status != models.InvoiceCancelled && inv.Date.After(last) {
			last = inv.Date
		}
	}
	return last, nil
}

func (m *memStore) findItem(id int64) (*models.Invoice, int) {
	for _, inv := range m.invoices {
		for i, it := range inv.Items {
			if it.ID == id {
				return inv, i
			}
		}
	}
	return nil, -1
}

func (m *memStore) GetInvoiceItem(_ context.Context, id int64) (models.InvoiceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, i := m.findItem(id)
	if inv == nil {
		return models.InvoiceItem{}, database.ErrNotFound
	}
	return inv.Items[i], nil
}

func (m *memStore) AddInvoiceItem(_ context.Context, it models.InvoiceItem) (models.InvoiceItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[it.InvoiceID]
	if !ok {
		return models.InvoiceItem{}, database.ErrReferenced
	}
	it.ID = m.id()
	inv.Items = append(inv.Items, it)
	inv.TotalAmount = inv.ComputeTotal()
	return it, nil
}

func (m *memStore) UpdateInvoiceItem(_ context.Context, it models.InvoiceItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, i := m.findItem(it.ID)
	if inv == nil {
		return database.ErrNotFound
	}
	inv.Items[i] = it
	inv.TotalAmount = inv.ComputeTotal()
	return nil
}

func (m *memStore) DeleteInvoiceItem(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, i := m.findItem(id)
	if inv == nil {
		return database.ErrNotFound
	}
	inv.Items = slices.Delete(inv.Items, i, i+1)
	inv.TotalAmount = inv.ComputeTotal()
	return nil
}

func (m *memStore) ListInvoicePayments(_ context.Context, invoiceID int64) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, inv := range m.invoices {
		if invoiceID == 0 || inv.ID == invoiceID {
			out = append(out, inv.Payments...)
		}
	}
	return out, nil
}

func (m *memStore) findPayment(id int64) (*models.Invoice, int) {
	for _, inv := range m.invoices {
		for i, p := range inv.Payments {
			if p.ID == id {
				return inv, i
			}
		}
	}
	return nil, -1
}

func (m *memStore) GetInvoicePayment(_ context.Context, id int64) (models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, i := m.findPayment(id)
	if inv == nil {
		return models.Payment{}, database.ErrNotFound
	}
	return inv.Payments[i], nil
}

func (m *memStore) AddInvoicePayment(_ context.Context, p models.Payment) (models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[p.InvoiceID]
	if !ok {
		return models.Payment{}, database.ErrReferenced
	}
	p.ID = m.id()
	p.InvoiceNumber = inv.Number
	inv.Payments = append(inv.Payments, p)
	return p, nil
}

func (m *memStore) DeleteInvoicePayment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, i := m.findPayment(id)
	if inv == nil {
		return database.ErrNotFound
	}
	inv.Payments = slices.Delete(inv.Payments, i, i+1)
	return nil
}

func (m *memStore) ListContracts(_ context.Context, f database.ContractFilter) ([]models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Contract
	for _, c := range m.contracts {
		if (f.Status == "" || c.Status == f.Status) && (f.Frequency == "" || c.Frequency == f.Frequency) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) GetContract(_ context.Context, id int64) (models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contracts {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Contract{}, database.ErrNotFound
}

func (m *memStore) GetProperty(_ context.Context, id int64) (models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return models.Property{}, database.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListOwnerReceipts(_ context.Context, invoiceID int64) ([]models.OwnerReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OwnerReceipt
	for _, r := range m.receipts {
		if invoiceID == 0 || r.InvoiceID == invoiceID {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, func(a, b models.OwnerReceipt) int { return int(b.ID - a.ID) })
	return out, nil
}

func (m *memStore) GetOwnerReceipt(_ context.Context, id int64) (models.OwnerReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok {
		return models.OwnerReceipt{}, database.ErrNotFound
	}
	return *r, nil
}

func (m *memStore) CreateOwnerReceipt(_ context.Context, r models.OwnerReceipt) (models.OwnerReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[r.InvoiceID]
	if !ok {
		return models.OwnerReceipt{}, database.ErrReferenced
	}
	for _, other := range m.receipts {
		if other.Number == r.Number {
			return models.OwnerReceipt{}, database.ErrConflict
		}
	}
	r.ID = m.id()
	r.InvoiceNumber = inv.Number
	r.GeneratedAt = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	m.receipts[r.ID] = &r
	return r, nil
}

func (m *memStore) SetOwnerReceiptStatus(_ context.Context, id int64, status models.ReceiptStatus, errMsg string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok {
		return database.ErrNotFound
	}
	r.Status, r.ErrorMessage, r.SentAt = status, errMsg, nil
	if status == models.ReceiptSent {
		r.SentAt = &sentAt
	}
	return nil
}

func (m *memStore) MaxReceiptSequence(_ context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := fmt.Sprintf("REC-%04d-", year)
	var last int
	for _, r := range m.receipts {
		if seq, err := strconv.Atoi(strings.TrimPrefix(r.Number, prefix)); err == nil && strings.HasPrefix(r.Number, prefix) {
			last = max(last, seq)
		}
	}
	return last, nil
}

func (m *memStore) GetCustomer(_ context.Context, id int64) (models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return models.Customer{}, database.ErrNotFound
	}
	return c, nil
}

func (m *memStore) AccountingSummary(_ context.Context, _ models.Date) (models.AccountingSummary, error) {
	return models.AccountingSummary{}, nil
}

// fakeNotifier records the payments it is told about.
type fakeNotifier struct {
	mu       sync.Mutex
	received []models.Invoice
	err      error
}

func (n *fakeNotifier) PaymentReceived(_ context.Context, inv models.Invoice, _ models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, inv)
	return n.err
}

// fakeMailer records the messages it sends. It fails the first failures calls with err,
// or every call when failures is 0.
type fakeMailer struct {
	mu       sync.Mutex
	sent     []mailer.Message
	err      error
	failures int
	calls    int
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil && (f.failures == 0 || f.calls <= f.failures) {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type staticCompany models.Company

func (c staticCompany) Company() models.Company { return models.Company(c) }
