// Package accounting manages the invoices of the back office: their lifecycle, numbering,
// payments, automatic billing of contracts, PDF rendering and delivery by e-mail.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// Store is the persistence used by the accounting service.
type Store interface {
	ListInvoices(ctx context.Context, f models.InvoiceFilter) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (models.Invoice, error)
	CreateInvoice(ctx context.Context, inv models.Invoice) (models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv models.Invoice) error
	DeleteInvoice(ctx context.Context, id int64) error
	SetInvoiceStatus(ctx context.Context, id int64, status models.InvoiceStatus) error
	SetInvoiceNumber(ctx context.Context, id int64, number string) error
	InvoicesWithoutNumber(ctx context.Context) ([]models.Invoice, error)
	MaxInvoiceSequence(ctx context.Context, year int) (int, error)
	LastContractInvoiceDate(ctx context.Context, contractID int64) (models.Date, error)

	GetInvoiceItem(ctx context.Context, id int64) (models.InvoiceItem, error)
	AddInvoiceItem(ctx context.Context, it models.InvoiceItem) (models.InvoiceItem, error)
	UpdateInvoiceItem(ctx context.Context, it models.InvoiceItem) error
	DeleteInvoiceItem(ctx context.Context, id int64) error

	ListInvoicePayments(ctx context.Context, invoiceID int64) ([]models.Payment, error)
	GetInvoicePayment(ctx context.Context, id int64) (models.Payment, error)
	AddInvoicePayment(ctx context.Context, p models.Payment) (models.Payment, error)
	DeleteInvoicePayment(ctx context.Context, id int64) error

	ListOwnerReceipts(ctx context.Context, invoiceID int64) ([]models.OwnerReceipt, error)
	GetOwnerReceipt(ctx context.Context, id int64) (models.OwnerReceipt, error)
	CreateOwnerReceipt(ctx context.Context, r models.OwnerReceipt) (models.OwnerReceipt, error)
	SetOwnerReceiptStatus(ctx context.Context, id int64, status models.ReceiptStatus, errMsg string, sentAt time.Time) error
	MaxReceiptSequence(ctx context.Context, year int) (int, error)

	ListContracts(ctx context.Context, f database.ContractFilter) ([]models.Contract, error)
	GetContract(ctx context.Context, id int64) (models.Contract, error)
	GetProperty(ctx context.Context, id int64) (models.Property, error)
	GetCustomer(ctx context.Context, id int64) (models.Customer, error)
	AccountingSummary(ctx context.Context, today models.Date) (models.AccountingSummary, error)
}

// PaymentNotifier is told about the payments recorded on invoices.
type PaymentNotifier interface {
	PaymentReceived(ctx context.Context, inv models.Invoice, p models.Payment) error
}

// Mailer delivers e-mails.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// CompanyProvider returns the company printed on invoices.
type CompanyProvider interface {
	Company() models.Company
}

// ErrLocked is returned when an invoice can no longer be changed the requested way.
var ErrLocked = errors.New("invoice is locked")

// Service implements the accounting operations.
type Service struct {
	store      Store
	notifier   PaymentNotifier
	mailer     Mailer
	company    CompanyProvider
	today      func() models.Date
	retryDelay time.Duration
}

type options struct {
	notifier   PaymentNotifier
	mailer     Mailer
	company    CompanyProvider
	today      func() models.Date
	retryDelay time.Duration
}

// Options represents an optional function to override Service default values.
type Options func(*options)

// WithNotifier sets the receiver of payment notifications.
func WithNotifier(n PaymentNotifier) Options {
	return func(o *options) { o.notifier = n }
}

// WithMailer sets the mailer used to send invoices.
func WithMailer(m Mailer) Options {
	return func(o *options) { o.mailer = m }
}

// WithCompany sets the company printed on invoices.
func WithCompany(c CompanyProvider) Options {
	return func(o *options) { o.company = c }
}

// WithToday overrides the current day.
func WithToday(today func() models.Date) Options {
	return func(o *options) { o.today = today }
}

// WithRetryDelay sets the pause between two deliveries of an owner receipt.
func WithRetryDelay(d time.Duration) Options {
	return func(o *options) { o.retryDelay = d }
}

// New returns an accounting service backed by store.
func New(store Store, args ...Options) *Service {
	opts := options{
		today:      func() models.Date { return models.TodayIn(constants.DefaultTimeZone) },
		retryDelay: constants.ReceiptRetryDelay,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Service{
		store:      store,
		notifier:   opts.notifier,
		mailer:     opts.mailer,
		company:    opts.company,
		today:      opts.today,
		retryDelay: opts.retryDelay,
	}
}

// List returns the invoices matching f.
func (s *Service) List(ctx context.Context, f models.InvoiceFilter) ([]models.Invoice, error) {
	return s.store.ListInvoices(ctx, f)
}

// Get returns an invoice with its items and payments.
func (s *Service) Get(ctx context.Context, id int64) (models.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// Summary returns the overview of the accounting dashboard.
func (s *Service) Summary(ctx context.Context) (models.AccountingSummary, error) {
	return s.store.AccountingSummary(ctx, s.today())
}

// Create stores a new invoice. New invoices start as drafts unless validated explicitly,
// and are dated today with the default payment term when dates are omitted.
func (s *Service) Create(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	if inv.Status == "" {
		inv.Status = models.InvoiceDraft
	}
	if inv.Status != models.InvoiceDraft && inv.Status != models.InvoiceValidated {
		return models.Invoice{}, validate.Errorf("new invoices must be draft or validated, not %s", inv.Status)
	}
	if inv.Date.IsZero() {
		inv.Date = s.today()
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.Date.AddDays(constants.InvoicePaymentTerm)
	}
	if err := checkInvoice(inv); err != nil {
		return models.Invoice{}, err
	}
	for _, it := range inv.Items {
		if err := validate.Struct(it); err != nil {
			return models.Invoice{}, err
		}
	}

	created, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return models.Invoice{}, err
	}
	slog.Info("Invoice created", "invoice", created.ID, "status", created.Status, "total", created.TotalAmount)

	if created.Status == models.InvoiceValidated && created.Number == "" {
		return s.assignNumber(ctx, created)
	}
	return created, nil
}

// Update changes the header of an invoice. Paid and cancelled invoices cannot be edited.
func (s *Service) Update(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	cur, err := s.store.GetInvoice(ctx, inv.ID)
	if err != nil {
		return models.Invoice{}, err
	}
	if !editable(cur.Status) {
		return models.Invoice{}, fmt.Errorf("%w: %s invoices cannot be edited", ErrLocked, cur.Status)
	}

	inv.Status = cur.Status
	if inv.Number == "" {
		inv.Number = cur.Number
	}
	if len(cur.Items) > 0 {
		inv.TotalAmount = cur.TotalAmount
	}
	if err := checkInvoice(inv); err != nil {
		return models.Invoice{}, err
	}
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return models.Invoice{}, err
	}
	return s.refreshStatus(ctx, inv.ID)
}

// Delete removes a draft invoice.
func (s *Service) Delete(ctx context.Context, id int64) error {
	cur, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status != models.InvoiceDraft {
		return fmt.Errorf("%w: only draft invoices can be deleted", ErrLocked)
	}
	return s.store.DeleteInvoice(ctx, id)
}

// Validate confirms a draft invoice and gives it a number.
func (s *Service) Validate(ctx context.Context, id int64) (models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if inv.TotalAmount <= 0 {
		return models.Invoice{}, validate.Errorf("invoice %d has no amount to bill", id)
	}
	if inv, err = s.fire(ctx, inv, TriggerValidate); err != nil {
		return models.Invoice{}, err
	}
	if inv.Number == "" {
		return s.assignNumber(ctx, inv)
	}
	return inv, nil
}

// MarkSent records that a validated invoice was delivered to the customer.
func (s *Service) MarkSent(ctx context.Context, id int64) (models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	return s.fire(ctx, inv, TriggerSend)
}

// Cancel cancels an unpaid invoice.
func (s *Service) Cancel(ctx context.Context, id int64) (models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	return s.fire(ctx, inv, TriggerCancel)
}

// AddItem adds a line to an editable invoice.
func (s *Service) AddItem(ctx context.Context, it models.InvoiceItem) (models.InvoiceItem, error) {
	if err := validate.Struct(it); err != nil {
		return models.InvoiceItem{}, err
	}
	if err := s.checkEditable(ctx, it.InvoiceID); err != nil {
		return models.InvoiceItem{}, err
	}

	created, err := s.store.AddInvoiceItem(ctx, it)
	if err != nil {
		return models.InvoiceItem{}, err
	}
	if _, err := s.refreshStatus(ctx, it.InvoiceID); err != nil {
		return models.InvoiceItem{}, err
	}
	return created, nil
}

// UpdateItem changes a line of an editable invoice.
func (s *Service) UpdateItem(ctx context.Context, it models.InvoiceItem) (models.InvoiceItem, error) {
	if err := validate.Struct(it); err != nil {
		return models.InvoiceItem{}, err
	}
	cur, err := s.store.GetInvoiceItem(ctx, it.ID)
	if err != nil {
		return models.InvoiceItem{}, err
	}
	it.InvoiceID = cur.InvoiceID
	if err := s.checkEditable(ctx, it.InvoiceID); err != nil {
		return models.InvoiceItem{}, err
	}

	if err := s.store.UpdateInvoiceItem(ctx, it); err != nil {
		return models.InvoiceItem{}, err
	}
	if _, err := s.refreshStatus(ctx, it.InvoiceID); err != nil {
		return models.InvoiceItem{}, err
	}
	return it, nil
}

// DeleteItem removes a line of an editable invoice.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	cur, err := s.store.GetInvoiceItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkEditable(ctx, cur.InvoiceID); err != nil {
		return err
	}
	if err := s.store.DeleteInvoiceItem(ctx, id); err != nil {
		return err
	}
	_, err = s.refreshStatus(ctx, cur.InvoiceID)
	return err
}

// Payments returns the payments of an invoice, or of every invoice when invoiceID is 0.
func (s *Service) Payments(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	return s.store.ListInvoicePayments(ctx, invoiceID)
}

// Payment returns a single invoice payment.
func (s *Service) Payment(ctx context.Context, id int64) (models.Payment, error) {
	return s.store.GetInvoicePayment(ctx, id)
}

// RecordPayment registers a payment against an open invoice. The invoice is settled when its
// balance reaches zero, and the agent of its contract is notified.
func (s *Service) RecordPayment(ctx context.Context, p models.Payment) (models.Payment, models.Invoice, error) {
	if p.Date.IsZero() {
		p.Date = s.today()
	}
	if err := validate.Struct(p); err != nil {
		return models.Payment{}, models.Invoice{}, err
	}

	inv, err := s.store.GetInvoice(ctx, p.InvoiceID)
	if err != nil {
		return models.Payment{}, models.Invoice{}, err
	}
	if !inv.Status.Open() {
		return models.Payment{}, models.Invoice{}, fmt.Errorf("%w: %s invoices do not accept payments", ErrLocked, inv.Status)
	}
	if balance := inv.Balance(); p.Amount > balance {
		return models.Payment{}, models.Invoice{}, validate.Errorf("payment of %s exceeds the balance of %s", p.Amount.Format(), balance.Format())
	}

	created, err := s.store.AddInvoicePayment(ctx, p)
	if err != nil {
		return models.Payment{}, models.Invoice{}, err
	}
	slog.Info("Payment recorded", "invoice", inv.ID, "payment", created.ID, "amount", created.Amount)

	inv, err = s.refreshStatus(ctx, inv.ID)
	if err != nil {
		return models.Payment{}, models.Invoice{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.PaymentReceived(ctx, inv, created); err != nil {
			slog.Warn("Could not notify payment", "invoice", inv.ID, "payment", created.ID, "err", err)
		}
	}
	return created, inv, nil
}

// DeletePayment removes a payment. A paid invoice is reopened when it has a balance again.
func (s *Service) DeletePayment(ctx context.Context, id int64) (models.Invoice, error) {
	p, err := s.store.GetInvoicePayment(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if err := s.store.DeleteInvoicePayment(ctx, id); err != nil {
		return models.Invoice{}, err
	}
	return s.refreshStatus(ctx, p.InvoiceID)
}

// fire applies t to inv and stores the new status.
func (s *Service) fire(ctx context.Context, inv models.Invoice, t Trigger) (models.Invoice, error) {
	next, err := Transition(inv.Status, t)
	if err != nil {
		return models.Invoice{}, err
	}
	if err := s.store.SetInvoiceStatus(ctx, inv.ID, next); err != nil {
		return models.Invoice{}, err
	}
	slog.Info("Invoice status changed", "invoice", inv.ID, "from", inv.Status, "to", next, "trigger", t)
	inv.Status = next
	return inv, nil
}

// refreshStatus settles or reopens an invoice according to its balance and returns it.
func (s *Service) refreshStatus(ctx context.Context, id int64) (models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	t, ok := settlement(inv)
	if !ok {
		return inv, nil
	}
	return s.fire(ctx, inv, t)
}

func (s *Service) checkEditable(ctx context.Context, invoiceID int64) error {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !editable(inv.Status) {
		return fmt.Errorf("%w: %s invoices cannot be edited", ErrLocked, inv.Status)
	}
	return nil
}

func editable(status models.InvoiceStatus) bool {
	return status == models.InvoiceDraft || status == models.InvoiceValidated
}

func checkInvoice(inv models.Invoice) error {
	if err := validate.Struct(inv); err != nil {
		return err
	}
	if inv.Date.IsZero() || inv.DueDate.IsZero() {
		return validate.Errorf("invoice and due dates are required")
	}
	if inv.DueDate.Before(inv.Date) {
		return validate.Errorf("due date %s is before the invoice date %s", inv.DueDate, inv.Date)
	}
	if inv.TotalAmount < 0 {
		return validate.Errorf("total amount cannot be negative")
	}
	return nil
}
