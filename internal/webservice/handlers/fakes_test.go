package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/contracts"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// agentStore keeps agents in memory.
type agentStore struct {
	mu     sync.Mutex
	agents map[int64]models.Agent
	nextID int64

	// referenced agents can't be deleted.
	referenced map[int64]bool
}

func newAgentStore(agents ...models.Agent) *agentStore {
	s := &agentStore{agents: make(map[int64]models.Agent), referenced: make(map[int64]bool)}
	for _, a := range agents {
		s.agents[a.ID] = a
		s.nextID = max(s.nextID, a.ID)
	}
	return s
}

func (s *agentStore) ListAgents(_ context.Context, search string) ([]models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Agent
	for _, a := range s.agents {
		if search == "" || strings.Contains(strings.ToLower(a.FullName()), strings.ToLower(search)) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *agentStore) GetAgent(_ context.Context, id int64) (models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return models.Agent{}, fmt.Errorf("agent %d: %w", id, database.ErrNotFound)
	}
	return a, nil
}

func (s *agentStore) CreateAgent(_ context.Context, a models.Agent) (models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.agents {
		if other.Email == a.Email {
			return models.Agent{}, fmt.Errorf("email %s: %w", a.Email, database.ErrConflict)
		}
	}
	s.nextID++
	a.ID = s.nextID
	s.agents[a.ID] = a
	return a, nil
}

func (s *agentStore) UpdateAgent(_ context.Context, a models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return database.ErrNotFound
	}
	s.agents[a.ID] = a
	return nil
}

func (s *agentStore) DeleteAgent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return database.ErrNotFound
	}
	if s.referenced[id] {
		return database.ErrReferenced
	}
	delete(s.agents, id)
	return nil
}

// propertyStore records the filter of the last listing and the links it is asked to set.
type propertyStore struct {
	lastFilter database.PropertyFilter
	properties []models.Property
	err        error

	gotLinks   []int64
	gotFeature models.Feature
	gotTag     models.Tag
}

func (s *propertyStore) ListProperties(_ context.Context, f database.PropertyFilter) ([]models.Property, error) {
	s.lastFilter = f
	return s.properties, s.err
}

func (s *propertyStore) GetProperty(_ context.Context, id int64) (models.Property, error) {
	for _, p := range s.properties {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Property{}, database.ErrNotFound
}

func (s *propertyStore) CreateProperty(_ context.Context, p models.Property) (models.Property, error) {
	p.ID = int64(len(s.properties) + 1)
	s.properties = append(s.properties, p)
	return p, nil
}

func (s *propertyStore) UpdateProperty(context.Context, models.Property) error { return nil }
func (s *propertyStore) DeleteProperty(context.Context, int64) error           { return nil }

func (s *propertyStore) ListPropertyTypes(context.Context) ([]models.PropertyType, error) {
	return []models.PropertyType{{ID: 1, Name: "Casa"}, {ID: 2, Name: "Departamento"}}, nil
}

func (s *propertyStore) ListPropertyStatuses(context.Context) ([]models.PropertyStatus, error) {
	return []models.PropertyStatus{{ID: 1, Name: "Disponible"}}, nil
}

func (s *propertyStore) ListFeatures(context.Context) ([]models.Feature, error) {
	return []models.Feature{{ID: 1, Name: "Pileta"}}, s.err
}

func (s *propertyStore) CreateFeature(_ context.Context, f models.Feature) (models.Feature, error) {
	s.gotFeature = f
	f.ID = 2
	return f, s.err
}

func (s *propertyStore) DeleteFeature(context.Context, int64) error { return s.err }

func (s *propertyStore) ListTags(context.Context) ([]models.Tag, error) {
	return nil, s.err
}

func (s *propertyStore) CreateTag(_ context.Context, t models.Tag) (models.Tag, error) {
	s.gotTag = t
	t.ID = 3
	if t.Color == "" {
		t.Color = models.DefaultTagColor
	}
	return t, s.err
}

func (s *propertyStore) DeleteTag(context.Context, int64) error { return s.err }

func (s *propertyStore) SetPropertyFeatures(ctx context.Context, propertyID int64, ids []int64) error {
	return s.setLinks(ctx, propertyID, ids)
}

func (s *propertyStore) SetPropertyTags(ctx context.Context, propertyID int64, ids []int64) error {
	return s.setLinks(ctx, propertyID, ids)
}

func (s *propertyStore) setLinks(ctx context.Context, propertyID int64, ids []int64) error {
	s.gotLinks = ids
	if s.err != nil {
		return s.err
	}
	_, err := s.GetProperty(ctx, propertyID)
	return err
}

type companyStore struct {
	company models.Company
	saveErr error
}

func (c *companyStore) Company() models.Company { return c.company }

func (c *companyStore) Save(company models.Company) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	c.company = company
	return nil
}

type dashboardStore struct {
	gotToday models.Date
}

func (d *dashboardStore) Dashboard(_ context.Context, today models.Date) (models.Dashboard, error) {
	d.gotToday = today
	return models.Dashboard{Agents: 2, ActiveContracts: 5}, nil
}

// contractService returns canned contracts.
type contractService struct {
	lastFilter database.ContractFilter
	contract   models.Contract
	err        error
	gotInc     models.ContractIncrease
}

func (s *contractService) List(_ context.Context, f database.ContractFilter) ([]models.Contract, error) {
	s.lastFilter = f
	return nil, s.err
}

func (s *contractService) Get(_ context.Context, id int64) (models.Contract, error) {
	if id != s.contract.ID {
		return models.Contract{}, database.ErrNotFound
	}
	return s.contract, s.err
}

func (s *contractService) Create(_ context.Context, c models.Contract) (models.Contract, error) {
	if s.err != nil {
		return models.Contract{}, s.err
	}
	c.ID = 10
	c.Status = models.ContractActive
	return c, nil
}

func (s *contractService) Update(_ context.Context, c models.Contract) (models.Contract, error) {
	return c, s.err
}

func (s *contractService) Cancel(_ context.Context, id int64) (models.Contract, error) {
	if s.err != nil {
		return models.Contract{}, s.err
	}
	c := s.contract
	c.Status = models.ContractCancelled
	return c, nil
}

func (s *contractService) RefreshStatus(_ context.Context, id int64) (models.Contract, bool, error) {
	c := s.contract
	c.Status = models.ContractExpiringSoon
	return c, true, s.err
}

func (s *contractService) Increases(context.Context, int64) ([]models.ContractIncrease, error) {
	return nil, s.err
}

func (s *contractService) AddIncrease(_ context.Context, inc models.ContractIncrease) (models.ContractIncrease, error) {
	s.gotInc = inc
	if s.err != nil {
		return models.ContractIncrease{}, s.err
	}
	inc.ID = 1
	inc.IncreasePercentage = contracts.IncreasePercentage(inc.PreviousAmount, inc.NewAmount)
	return inc, nil
}

// rentService records the arguments of its calls.
type rentService struct {
	gotContract int64
	gotStatus   models.ContractPaymentStatus
	gotOverdue  bool
	gotActive   bool
	gotReceipt  string
	createErr   error
	payments    []models.ContractPayment
}

func (s *rentService) PaymentMethods(_ context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	s.gotActive = activeOnly
	return []models.PaymentMethod{{ID: 1, Name: "Efectivo", IsActive: true}}, nil
}

func (s *rentService) Payments(_ context.Context, contractID int64, status models.ContractPaymentStatus, overdue bool) ([]models.ContractPayment, error) {
	s.gotContract, s.gotStatus, s.gotOverdue = contractID, status, overdue
	return s.payments, nil
}

func (s *rentService) Payment(_ context.Context, id int64) (models.ContractPayment, error) {
	for _, p := range s.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return models.ContractPayment{}, database.ErrNotFound
}

func (s *rentService) CreatePayment(_ context.Context, p models.ContractPayment) (models.ContractPayment, error) {
	if s.createErr != nil {
		return models.ContractPayment{}, s.createErr
	}
	p.ID = 7
	return p, nil
}

func (s *rentService) MarkPaid(_ context.Context, id int64, receipt string) (models.ContractPayment, error) {
	s.gotReceipt = receipt
	p, err := s.Payment(context.Background(), id)
	if err != nil {
		return p, err
	}
	p.Status = models.ContractPaymentPaid
	p.ReceiptNumber = receipt
	return p, nil
}

// notificationService records the arguments of its calls.
type notificationService struct {
	gotAgent  int64
	gotID     int64
	gotUnread bool
	gotLimit  int
	saved     models.NotificationPreference
	err       error
}

func (s *notificationService) List(_ context.Context, agentID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	s.gotAgent, s.gotUnread, s.gotLimit = agentID, unreadOnly, limit
	return []models.Notification{{ID: 1, AgentID: agentID, Title: "Factura vencida"}}, s.err
}

func (s *notificationService) UnreadCount(_ context.Context, agentID int64) (int, error) {
	s.gotAgent = agentID
	return 3, s.err
}

func (s *notificationService) MarkRead(_ context.Context, agentID, id int64) error {
	s.gotAgent, s.gotID = agentID, id
	return s.err
}

func (s *notificationService) MarkAllRead(_ context.Context, agentID int64) (int64, error) {
	s.gotAgent = agentID
	return 4, s.err
}

func (s *notificationService) Preferences(_ context.Context, agentID int64) (models.NotificationPreference, error) {
	return models.NotificationPreference{AgentID: agentID, DaysBeforeDueDate: 3}, s.err
}

func (s *notificationService) SavePreferences(_ context.Context, p models.NotificationPreference) error {
	s.saved = p
	return s.err
}

type locationService struct{}

func (locationService) Countries(context.Context) ([]models.Country, error) {
	return []models.Country{{ID: 1, Name: "Argentina"}}, nil
}

func (locationService) States(_ context.Context, countryID int64) ([]models.State, error) {
	if countryID != 1 {
		return nil, nil
	}
	return []models.State{{ID: 1, CountryID: 1, Name: "Buenos Aires"}}, nil
}

func (locationService) Cities(_ context.Context, stateID int64) ([]models.City, error) {
	return []models.City{{ID: 1, StateID: stateID, Name: "La Plata"}}, nil
}

// accountingService returns canned invoices and records the calls it gets.
type accountingService struct {
	invoice models.Invoice
	err     error
	calls   []string

	gotFilter  models.InvoiceFilter
	gotItem    models.InvoiceItem
	gotPayment models.Payment

	gotReceiptInvoice int64
}

func (s *accountingService) call(name string) (models.Invoice, error) {
	s.calls = append(s.calls, name)
	return s.invoice, s.err
}

func (s *accountingService) List(_ context.Context, f models.InvoiceFilter) ([]models.Invoice, error) {
	s.gotFilter = f
	return []models.Invoice{s.invoice}, s.err
}

func (s *accountingService) Get(_ context.Context, id int64) (models.Invoice, error) {
	if id != s.invoice.ID {
		return models.Invoice{}, database.ErrNotFound
	}
	return s.call("get")
}

func (s *accountingService) Summary(context.Context) (models.AccountingSummary, error) {
	return models.AccountingSummary{TotalInvoiced: 150000, OverdueCount: 1}, s.err
}

func (s *accountingService) Create(_ context.Context, inv models.Invoice) (models.Invoice, error) {
	s.calls = append(s.calls, "create")
	if s.err != nil {
		return models.Invoice{}, s.err
	}
	inv.ID = 99
	inv.Status = models.InvoiceDraft
	return inv, nil
}

func (s *accountingService) Update(_ context.Context, inv models.Invoice) (models.Invoice, error) {
	s.calls = append(s.calls, "update")
	return inv, s.err
}

func (s *accountingService) Delete(context.Context, int64) error {
	_, err := s.call("delete")
	return err
}

func (s *accountingService) Validate(context.Context, int64) (models.Invoice, error) {
	return s.call("validate")
}

func (s *accountingService) MarkSent(context.Context, int64) (models.Invoice, error) {
	return s.call("send")
}

func (s *accountingService) Cancel(context.Context, int64) (models.Invoice, error) {
	return s.call("cancel")
}

func (s *accountingService) SendByEmail(context.Context, int64) (models.Invoice, error) {
	return s.call("email")
}

func (s *accountingService) PDF(context.Context, int64) ([]byte, models.Invoice, error) {
	inv, err := s.call("pdf")
	if err != nil {
		return nil, models.Invoice{}, err
	}
	return []byte("%PDF-1.3"), inv, nil
}

func (s *accountingService) AddItem(_ context.Context, it models.InvoiceItem) (models.InvoiceItem, error) {
	s.gotItem = it
	s.calls = append(s.calls, "add_item")
	it.ID = 5
	return it, s.err
}

func (s *accountingService) UpdateItem(_ context.Context, it models.InvoiceItem) (models.InvoiceItem, error) {
	s.gotItem = it
	s.calls = append(s.calls, "update_item")
	return it, s.err
}

func (s *accountingService) DeleteItem(context.Context, int64) error {
	_, err := s.call("delete_item")
	return err
}

func (s *accountingService) Payments(context.Context, int64) ([]models.Payment, error) {
	return nil, s.err
}

func (s *accountingService) Payment(_ context.Context, id int64) (models.Payment, error) {
	return models.Payment{ID: id, InvoiceID: s.invoice.ID, Amount: 1000, Method: "Efectivo"}, s.err
}

func (s *accountingService) RecordPayment(_ context.Context, p models.Payment) (models.Payment, models.Invoice, error) {
	s.gotPayment = p
	inv, err := s.call("record_payment")
	if err != nil {
		return models.Payment{}, models.Invoice{}, err
	}
	p.ID = 3
	inv.Payments = append(inv.Payments, p)
	inv.Status = models.InvoicePaid
	return p, inv, nil
}

func (s *accountingService) DeletePayment(context.Context, int64) (models.Invoice, error) {
	return s.call("delete_payment")
}

func (s *accountingService) receipt(name string, id int64) (models.OwnerReceipt, error) {
	s.calls = append(s.calls, name)
	if s.err != nil {
		return models.OwnerReceipt{}, s.err
	}
	return models.OwnerReceipt{ID: id, Number: "REC-2025-0001", InvoiceID: s.invoice.ID,
		GrossAmount: 100000, DiscountPercentage: 10, DiscountAmount: 10000, NetAmount: 90000,
		Status: models.ReceiptGenerated}, nil
}

func (s *accountingService) ReceiptPreview(_ context.Context, invoiceID int64) (accounting.ReceiptData, error) {
	s.calls = append(s.calls, "receipt_preview")
	if s.err != nil {
		return accounting.ReceiptData{}, s.err
	}
	inv := s.invoice
	inv.ID = invoiceID
	return accounting.ReceiptData{Invoice: inv, GrossAmount: 100000, DiscountPercentage: 10, DiscountAmount: 10000, NetAmount: 90000}, nil
}

func (s *accountingService) GenerateReceipt(context.Context, int64) (models.OwnerReceipt, error) {
	return s.receipt("generate_receipt", 1)
}

func (s *accountingService) Receipts(_ context.Context, invoiceID int64) ([]models.OwnerReceipt, error) {
	s.gotReceiptInvoice = invoiceID
	return nil, s.err
}

func (s *accountingService) Receipt(_ context.Context, id int64) (models.OwnerReceipt, error) {
	return s.receipt("receipt", id)
}

func (s *accountingService) ReceiptPDF(_ context.Context, id int64) ([]byte, models.OwnerReceipt, error) {
	r, err := s.receipt("receipt_pdf", id)
	if err != nil {
		return nil, models.OwnerReceipt{}, err
	}
	return []byte("%PDF-1.3"), r, nil
}

func (s *accountingService) SendReceipt(_ context.Context, id int64) (models.OwnerReceipt, error) {
	r, err := s.receipt("send_receipt", id)
	r.Status = models.ReceiptSent
	return r, err
}

func (s *accountingService) ResendReceipt(_ context.Context, id int64) (models.OwnerReceipt, error) {
	r, err := s.receipt("resend_receipt", id)
	r.Status = models.ReceiptSent
	return r, err
}
